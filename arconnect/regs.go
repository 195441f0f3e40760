package arconnect

import "fmt"

// Register is an auxiliary register id.
type Register uint32

// Auxiliary registers of the unit.
const (
	RegBCR       Register = 0x0d0
	RegCommand   Register = 0x600
	RegWriteData Register = 0x601
	RegReadback  Register = 0x602
)

// Build configuration register fields.
const (
	BCRIDU     = 0x00800000
	BCRVersion = 0x00040000
)

// String returns the register name.
func (r Register) String() string {
	switch r {
	case RegBCR:
		return "mcip_bcr"
	case RegCommand:
		return "mcip_cmd"
	case RegWriteData:
		return "mcip_wdata"
	case RegReadback:
		return "mcip_readback"
	default:
		return fmt.Sprintf("aux 0x%03x", uint32(r))
	}
}

// ReadRegister reads an auxiliary register on behalf of a core. Reads never
// take the command lock.
func (u *Unit) ReadRegister(id CoreID, reg Register) (uint32, error) {
	core, err := u.registry.Resolve(id)
	if err != nil {
		return 0, err
	}

	switch reg {
	case RegBCR:
		return BCRIDU | BCRVersion, nil
	case RegWriteData:
		return core.wdata.Load(), nil
	case RegReadback:
		return core.readback.Load(), nil
	case RegCommand:
		return 0, fmt.Errorf("%w: read of write-only %s", ErrInvalidAccess, reg)
	default:
		return 0, fmt.Errorf("%w: read of %s", ErrInvalidAccess, reg)
	}
}

// WriteRegister writes an auxiliary register on behalf of a core. A write to
// the command register processes the command before returning.
func (u *Unit) WriteRegister(id CoreID, reg Register, value uint32) error {
	core, err := u.registry.Resolve(id)
	if err != nil {
		return err
	}

	switch reg {
	case RegCommand:
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.process(core, value)
	case RegWriteData:
		core.wdata.Store(value)
		return nil
	case RegBCR, RegReadback:
		return fmt.Errorf("%w: write of read-only %s", ErrInvalidAccess, reg)
	default:
		return fmt.Errorf("%w: write of %s", ErrInvalidAccess, reg)
	}
}

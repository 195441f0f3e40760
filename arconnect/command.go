package arconnect

import (
	"fmt"
	"sort"
)

// Command is the opcode field of a command word.
type Command uint8

// Command opcodes. The values follow the ARConnect encoding used by guest
// software.
const (
	CmdCheckCoreID Command = 0x00

	CmdIntrptGenerateIRQ Command = 0x01
	CmdIntrptGenerateAck Command = 0x02
	CmdIntrptReadStatus  Command = 0x03
	CmdIntrptCheckSource Command = 0x04
	CmdSemaClaimAndRead  Command = 0x11
	CmdSemaRelease       Command = 0x12
	CmdSemaForceRelease  Command = 0x13
	CmdIDUEnable         Command = 0x71
	CmdIDUDisable        Command = 0x72
	CmdIDUReadEnable     Command = 0x73
	CmdIDUSetMode        Command = 0x74
	CmdIDUReadMode       Command = 0x75
	CmdIDUSetDest        Command = 0x76
	CmdIDUReadDest       Command = 0x77
	CmdIDUGenCirq        Command = 0x78
	CmdIDUAckCirq        Command = 0x79
	CmdIDUCheckStatus    Command = 0x7a
	CmdIDUSetMask        Command = 0x7c
	CmdIDUReadMask       Command = 0x7d
	CmdIDUCheckFirst     Command = 0x7e
)

var commandNames = map[Command]string{
	CmdCheckCoreID:       "check_core_id",
	CmdIntrptGenerateIRQ: "intrpt_generate_irq",
	CmdIntrptGenerateAck: "intrpt_generate_ack",
	CmdIntrptReadStatus:  "intrpt_read_status",
	CmdIntrptCheckSource: "intrpt_check_source",
	CmdSemaClaimAndRead:  "sema_claim_and_read",
	CmdSemaRelease:       "sema_release",
	CmdSemaForceRelease:  "sema_force_release",
	CmdIDUEnable:         "idu_enable",
	CmdIDUDisable:        "idu_disable",
	CmdIDUReadEnable:     "idu_read_enable",
	CmdIDUSetMode:        "idu_set_mode",
	CmdIDUReadMode:       "idu_read_mode",
	CmdIDUSetDest:        "idu_set_dest",
	CmdIDUReadDest:       "idu_read_dest",
	CmdIDUGenCirq:        "idu_gen_cirq",
	CmdIDUAckCirq:        "idu_ack_cirq",
	CmdIDUCheckStatus:    "idu_check_status",
	CmdIDUSetMask:        "idu_set_mask",
	CmdIDUReadMask:       "idu_read_mask",
	CmdIDUCheckFirst:     "idu_check_first",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

// String returns the lower-case command name, or the hex opcode if the
// command is not supported.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}

// Supported reports whether the unit implements the command.
func (c Command) Supported() bool {
	_, ok := commandNames[c]
	return ok
}

// IsRead reports whether the command stages a result in the readback
// register.
func (c Command) IsRead() bool {
	switch c {
	case CmdCheckCoreID,
		CmdIntrptReadStatus,
		CmdIntrptCheckSource,
		CmdSemaClaimAndRead,
		CmdIDUReadEnable,
		CmdIDUReadMode,
		CmdIDUReadDest,
		CmdIDUCheckStatus,
		CmdIDUReadMask,
		CmdIDUCheckFirst:
		return true
	}
	return false
}

// CommandByName looks up a command by its String name.
func CommandByName(name string) (Command, error) {
	cmd, ok := commandsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCommand, name)
	}
	return cmd, nil
}

// Commands returns every supported command in opcode order.
func Commands() []Command {
	cmds := make([]Command, 0, len(commandNames))
	for cmd := range commandNames {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
	return cmds
}

// EncodeCommand builds a command word: opcode in bits 0..7, parameter in
// bits 8..23.
func EncodeCommand(cmd Command, param uint16) uint32 {
	return uint32(cmd) | uint32(param)<<8
}

// DecodeCommand splits a command word into opcode and parameter.
func DecodeCommand(word uint32) (Command, uint16) {
	return Command(word & 0xff), uint16((word >> 8) & 0xffff)
}

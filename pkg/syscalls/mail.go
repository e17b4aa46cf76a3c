package syscalls

import (
	"encoding/binary"

	"github.com/rvcore/corekernel/pkg/abi"
	"github.com/rvcore/corekernel/pkg/kerrors"
	"github.com/rvcore/corekernel/pkg/kernel"
	"github.com/rvcore/corekernel/pkg/mm"
)

// MailRead implements sys_mail_read, the supplemented IPC syscall
// (SPEC_FULL §4.1): drain up to maxCount pending mailbox notifications
// into out as a flat little-endian uint32 array, returning how many
// were read.
func MailRead(t *kernel.Task, out mm.VirtAddr, maxCount int) int64 {
	t.Info.RecordSyscall(abi.SyscallMailRead)
	msgs := t.Process.Mailbox.Drain(maxCount)
	if len(msgs) == 0 {
		return 0
	}
	buf := make([]byte, 4*len(msgs))
	for i, m := range msgs {
		binary.LittleEndian.PutUint32(buf[i*4:], m)
	}
	if !mm.WriteStruct(tokenOf(t), out, buf) {
		return kerrors.CodeInvalid
	}
	return int64(len(msgs))
}

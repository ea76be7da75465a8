package amd64

import (
	"github.com/sksat/vicis/internal/engine/vicis/backend"
)

// Amd64-specific registers.
//
// The 32-bit and the 64-bit views of a general purpose register are distinct
// RealRegs, since an instruction names exactly one of them.

const (
	// 32-bit general purpose registers.

	eax = backend.RealRegInvalid + 1 + iota
	ecx
	edx
	ebx
	esp
	ebp
	esi
	edi

	// 64-bit general purpose registers.

	rax
	rcx
	rdx
	rbx
	rsp
	rbp
	rsi
	rdi

	numRegisters
)

var (
	eaxVReg = regToVReg(eax)
	rbpVReg = regToVReg(rbp)
	rspVReg = regToVReg(rsp)
)

var regNames = [...]string{
	eax: "eax",
	ecx: "ecx",
	edx: "edx",
	ebx: "ebx",
	esp: "esp",
	ebp: "ebp",
	esi: "esi",
	edi: "edi",
	rax: "rax",
	rcx: "rcx",
	rdx: "rdx",
	rbx: "rbx",
	rsp: "rsp",
	rbp: "rbp",
	rsi: "rsi",
	rdi: "rdi",
}

// regToVReg returns the VReg bound to the physical register.
func regToVReg(reg backend.RealReg) backend.VReg {
	return backend.FromRealReg(reg)
}

// RegisterName returns the assembly name of the physical register.
func RegisterName(r backend.RealReg) string {
	if r == backend.RealRegInvalid || r >= numRegisters {
		return "invalid"
	}
	return regNames[r]
}

func formatVReg(r backend.VReg) string {
	if r.IsRealReg() {
		return RegisterName(r.RealReg())
	}
	return r.String()
}

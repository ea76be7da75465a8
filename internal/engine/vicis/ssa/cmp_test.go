package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegerCmpCond(t *testing.T) {
	for _, tc := range []struct {
		c      IntegerCmpCond
		exp    string
		signed bool
	}{
		{c: IntegerCmpCondEqual, exp: "eq"},
		{c: IntegerCmpCondNotEqual, exp: "ne"},
		{c: IntegerCmpCondSignedLessThan, exp: "slt", signed: true},
		{c: IntegerCmpCondSignedGreaterThanOrEqual, exp: "sge", signed: true},
		{c: IntegerCmpCondSignedGreaterThan, exp: "sgt", signed: true},
		{c: IntegerCmpCondSignedLessThanOrEqual, exp: "sle", signed: true},
		{c: IntegerCmpCondUnsignedLessThan, exp: "ult"},
		{c: IntegerCmpCondUnsignedGreaterThanOrEqual, exp: "uge"},
		{c: IntegerCmpCondUnsignedGreaterThan, exp: "ugt"},
		{c: IntegerCmpCondUnsignedLessThanOrEqual, exp: "ule"},
	} {
		t.Run(tc.exp, func(t *testing.T) {
			require.Equal(t, tc.exp, tc.c.String())
			require.Equal(t, tc.signed, tc.c.Signed())
		})
	}
	require.Panics(t, func() { _ = integerCmpCondEnd.String() })
}

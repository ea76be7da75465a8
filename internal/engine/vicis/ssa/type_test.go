package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	types := NewTypes()
	i32 := types.Int(32)
	require.Equal(t, i32, types.Int(32))
	require.NotEqual(t, i32, types.Int(64))

	ptr := types.Pointer(i32)
	arr := types.Array(i32, 4)
	arr2 := types.Array(arr, 3)
	fn := types.Function(i32, []TypeID{ptr, types.Int(8)}, true)
	require.Equal(t, fn, types.Function(i32, []TypeID{ptr, types.Int(8)}, true))
	require.NotEqual(t, fn, types.Function(i32, []TypeID{ptr, types.Int(8)}, false))

	for _, tc := range []struct {
		typ     TypeID
		kind    TypeKind
		size    uint64
		display string
	}{
		{typ: TypeVoid, kind: TypeKindVoid, size: 0, display: "void"},
		{typ: types.Int(1), kind: TypeKindInt, size: 1, display: "i1"},
		{typ: i32, kind: TypeKindInt, size: 4, display: "i32"},
		{typ: types.Int(64), kind: TypeKindInt, size: 8, display: "i64"},
		{typ: ptr, kind: TypeKindPointer, size: 8, display: "i32*"},
		{typ: types.Pointer(TypeInvalid), kind: TypeKindPointer, size: 8, display: "ptr"},
		{typ: arr, kind: TypeKindArray, size: 16, display: "[4 x i32]"},
		{typ: arr2, kind: TypeKindArray, size: 48, display: "[3 x [4 x i32]]"},
		{typ: fn, kind: TypeKindFunction, size: 0, display: "i32 (i32*, i8, ...)"},
	} {
		tc := tc
		t.Run(tc.display, func(t *testing.T) {
			require.Equal(t, tc.kind, types.Kind(tc.typ))
			require.Equal(t, tc.size, types.Size(tc.typ))
			require.Equal(t, tc.display, types.String(tc.typ))
		})
	}

	require.Equal(t, i32, types.Elem(ptr))
	require.Equal(t, uint64(4), types.Len(arr))
	require.True(t, types.IsInt(i32, 32))
	require.False(t, types.IsInt(ptr, 32))
	ret, params, variadic := types.Signature(fn)
	require.Equal(t, i32, ret)
	require.Equal(t, []TypeID{ptr, types.Int(8)}, params)
	require.True(t, variadic)
	require.Equal(t, TypeKindInvalid, types.Kind(TypeInvalid))
}

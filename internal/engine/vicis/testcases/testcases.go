// Package testcases holds LLVM IR programs shared by the tests of the engine packages.
package testcases

// TestCase is a module in LLVM IR text. Func is the function the test case is about.
type TestCase struct {
	Name   string
	Func   string
	Source string
}

var (
	Ret42 = TestCase{
		Name: "ret42", Func: "f",
		Source: `
define i32 @f() {
entry:
  ret i32 42
}
`,
	}
	StoreLoad = TestCase{
		Name: "store_load", Func: "f",
		Source: `
define i32 @f() {
entry:
  %p = alloca i32, align 4
  store i32 7, i32* %p, align 4
  %r = load i32, i32* %p, align 4
  ret i32 %r
}
`,
	}
	AddSub = TestCase{
		Name: "add_sub", Func: "f",
		Source: `
define i32 @f(i32 %x, i32 %y) {
entry:
  %a = add i32 %x, %y
  %s = sub i32 %a, 3
  ret i32 %s
}
`,
	}
	StoreParam = TestCase{
		Name: "store_param", Func: "f",
		Source: `
define i32 @f(i32 %x) {
entry:
  %p = alloca i32, align 4
  store i32 %x, i32* %p, align 4
  %r = load i32, i32* %p, align 4
  %s = add i32 %r, 1
  ret i32 %s
}
`,
	}
	Phi3 = TestCase{
		Name: "phi3", Func: "f",
		Source: `
define i32 @f(i32 %x) {
entry:
  %c = icmp eq i32 %x, 0
  br i1 %c, label %a, label %b
a:
  br label %join
b:
  %y = add i32 %x, 1
  %c2 = icmp sgt i32 %y, 5
  br i1 %c2, label %c3, label %join
c3:
  br label %join
join:
  %r = phi i32 [ 1, %a ], [ %y, %b ], [ %x, %c3 ]
  ret i32 %r
}
`,
	}
	Loop = TestCase{
		Name: "loop", Func: "loop",
		Source: `
define i32 @loop(i32 %n) {
entry:
  br label %head
head:
  %i = phi i32 [ 0, %entry ], [ %next, %body ]
  %c = icmp slt i32 %i, %n
  br i1 %c, label %body, label %exit
body:
  %next = add i32 %i, 1
  br label %head
exit:
  ret i32 %i
}
`,
	}
	// CrossBlockCondition compares in one block and branches on the result in another.
	CrossBlockCondition = TestCase{
		Name: "cross_block_condition", Func: "f",
		Source: `
define i32 @f(i32 %x) {
entry:
  %c = icmp sge i32 %x, 10
  br label %next
next:
  br i1 %c, label %t, label %e
t:
  ret i32 1
e:
  ret i32 0
}
`,
	}
	Multi = TestCase{
		Name: "multi", Func: "main",
		Source: `
declare i32 @putchar(i32)

define i32 @one() {
entry:
  ret i32 1
}

define i32 @mul(i32 %x) {
entry:
  %m = mul i32 %x, 3
  ret i32 %m
}

define i32 @main() {
entry:
  %p = alloca i32, align 4
  store i32 5, i32* %p, align 4
  %v = load i32, i32* %p, align 4
  ret i32 %v
}
`,
	}
	Unsupported = TestCase{
		Name: "unsupported", Func: "f",
		Source: `
define void @f() {
entry:
  ret void
}
`,
	}
)

// CondBr returns the test case branching on the icmp of the predicate between %x and 10.
func CondBr(pred string) TestCase {
	return TestCase{
		Name: "condbr_" + pred, Func: "f",
		Source: `
define i32 @f(i32 %x) {
entry:
  %c = icmp ` + pred + ` i32 %x, 10
  br i1 %c, label %t, label %e
t:
  ret i32 1
e:
  ret i32 0
}
`,
	}
}

// PhiJoin returns the test case joining %a and %b, in this layout order, with the
// phi of the given incoming list such as "[ 1, %a ], [ 2, %b ]".
func PhiJoin(name, incomings string) TestCase {
	return TestCase{
		Name: name, Func: "f",
		Source: `
define i32 @f(i32 %x) {
entry:
  %c = icmp eq i32 %x, 0
  br i1 %c, label %a, label %b
a:
  br label %join
b:
  br label %join
join:
  %r = phi i32 ` + incomings + `
  ret i32 %r
}
`,
	}
}

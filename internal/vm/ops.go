package vm

import "math/big"

// int32 bound per spec §3: "int is a 32-bit signed integer; arithmetic
// overflow is a runtime error, not wraparound." The bound is kept
// symmetric (±(2^31-1)) rather than the full two's-complement range so
// negation never needs its own overflow check.
const (
	maxInt32 = 1<<31 - 1
	minInt32 = -(1<<31 - 1)
)

func checkInt32(v int64) bool {
	return v >= minInt32 && v <= maxInt32
}

// binaryIntOp pops two Int values (right, then left), applies fn, and
// pushes the result, raising runtime.overflow when fn's result falls
// outside the 32-bit range. The inputs themselves are not range-checked.
func (vm *VM) binaryIntOp(op string, fn func(a, b int64) int64) error {
	right := vm.pop()
	left := vm.pop()
	if !left.IsInt() || !right.IsInt() {
		return vm.typeError(op, "int", left.Type.String()+", "+right.Type.String())
	}
	result := fn(left.Int, right.Int)
	if !checkInt32(result) {
		return vm.runtimeError("runtime.overflow", "%s overflows a 32-bit int", op)
	}
	vm.push(IntValue(result))
	return nil
}

func (vm *VM) execAddI() error {
	return vm.binaryIntOp("add", func(a, b int64) int64 { return a + b })
}

func (vm *VM) execSubI() error {
	return vm.binaryIntOp("subtract", func(a, b int64) int64 { return a - b })
}

func (vm *VM) execMulI() error {
	return vm.binaryIntOp("multiply", func(a, b int64) int64 { return a * b })
}

func (vm *VM) execDivI() error {
	right := vm.pop()
	left := vm.pop()
	if !left.IsInt() || !right.IsInt() {
		return vm.typeError("divide", "int", left.Type.String()+", "+right.Type.String())
	}
	if right.Int == 0 {
		return vm.runtimeError("runtime.divzero", "division by zero")
	}
	result := left.Int / right.Int
	if !checkInt32(result) {
		return vm.runtimeError("runtime.overflow", "divide overflows a 32-bit int")
	}
	vm.push(IntValue(result))
	return nil
}

func (vm *VM) execNegI() error {
	v := vm.pop()
	if !v.IsInt() {
		return vm.typeError("negate", "int", v.Type.String())
	}
	vm.push(IntValue(-v.Int))
	return nil
}

// Decimal values store a ×100-scaled int64 (spec §3: "decimal keeps two
// fractional digits of scale, ±(2^63-1)/100 in magnitude"). Add/Sub stay
// in scaled int64 and are checked for overflow directly; Mul/Div route
// through math/big since an intermediate scaled×scaled product can
// overflow int64 well before the final (rescaled) result would.

func addOverflows(a, b int64) bool {
	if b > 0 && a > maxScaledInt64-b {
		return true
	}
	if b < 0 && a < -maxScaledInt64-b {
		return true
	}
	return false
}

const maxScaledInt64 = 1<<63 - 1

func (vm *VM) binaryDecimalOp() (int64, int64, error) {
	right := vm.pop()
	left := vm.pop()
	if !left.IsNumber() || !right.IsNumber() {
		return 0, 0, vm.typeError("decimal operation", "decimal", left.Type.String()+", "+right.Type.String())
	}
	return left.AsDecimalScaled(), right.AsDecimalScaled(), nil
}

func (vm *VM) execAddD() error {
	l, r, err := vm.binaryDecimalOp()
	if err != nil {
		return err
	}
	if addOverflows(l, r) {
		return vm.runtimeError("runtime.overflow", "add overflows decimal range")
	}
	vm.push(Decimal(l + r))
	return nil
}

func (vm *VM) execSubD() error {
	l, r, err := vm.binaryDecimalOp()
	if err != nil {
		return err
	}
	if addOverflows(l, -r) {
		return vm.runtimeError("runtime.overflow", "subtract overflows decimal range")
	}
	vm.push(Decimal(l - r))
	return nil
}

func (vm *VM) execMulD() error {
	l, r, err := vm.binaryDecimalOp()
	if err != nil {
		return err
	}
	product := new(big.Int).Mul(big.NewInt(l), big.NewInt(r))
	product = divRoundHalfAwayFromZero(product, big.NewInt(100))
	if !product.IsInt64() {
		return vm.runtimeError("runtime.overflow", "multiply overflows decimal range")
	}
	vm.push(Decimal(product.Int64()))
	return nil
}

func (vm *VM) execDivD() error {
	l, r, err := vm.binaryDecimalOp()
	if err != nil {
		return err
	}
	if r == 0 {
		return vm.runtimeError("runtime.divzero", "division by zero")
	}
	scaled := new(big.Int).Mul(big.NewInt(l), big.NewInt(100))
	scaled = divRoundHalfAwayFromZero(scaled, big.NewInt(r))
	if !scaled.IsInt64() {
		return vm.runtimeError("runtime.overflow", "divide overflows decimal range")
	}
	vm.push(Decimal(scaled.Int64()))
	return nil
}

// divRoundHalfAwayFromZero divides num by den rounding a remainder of exactly
// half the divisor away from zero, per spec §3's round(a*b/100) / round(a*100/b).
func divRoundHalfAwayFromZero(num, den *big.Int) *big.Int {
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(num, den, r)
	if r.Sign() == 0 {
		return q
	}
	twiceR := new(big.Int).Abs(r)
	twiceR.Lsh(twiceR, 1)
	if twiceR.Cmp(new(big.Int).Abs(den)) >= 0 {
		if (num.Sign() < 0) == (den.Sign() < 0) {
			q.Add(q, big.NewInt(1))
		} else {
			q.Sub(q, big.NewInt(1))
		}
	}
	return q
}

func (vm *VM) execNegD() error {
	v := vm.pop()
	if !v.IsNumber() {
		return vm.typeError("negate", "decimal", v.Type.String())
	}
	vm.push(Decimal(-v.AsDecimalScaled()))
	return nil
}

// execCompare pops two operands and evaluates the given ordering/equality
// opcode against them. Eq/Ne accept any type via Value.Equal; Lt/Le/Gt/Ge
// require numeric, text, or date operands (Value.Less's domain).
func (vm *VM) execCompare(op func(l, r Value) bool) error {
	right := vm.pop()
	left := vm.pop()
	vm.push(Flag(op(left, right)))
	return nil
}

package vm

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// formatPrinter is locale-fixed (English) since Droe exposes no locale
// configuration surface (spec §4.4 lists only the pattern strings below).
var formatPrinter = message.NewPrinter(language.English)

// formatValue renders v under pattern, matching the closed pattern set
// internal/checker validates against (spec §4.4). Mismatched value/pattern
// combinations cannot reach here past a successful check, so a mismatch is
// a runtime.bad_cast rather than a user-facing format error.
func (vm *VM) formatValue(v Value, pattern string) (string, error) {
	switch pattern {
	case "MM/dd/yyyy", "dd/MM/yyyy", "MMM dd, yyyy", "long":
		return vm.formatDate(v, pattern)
	case "0.00", "#,##0.00", "$0.00":
		return vm.formatDecimal(v, pattern)
	case "#,##0", "0000", "hex":
		return vm.formatInt(v, pattern)
	}
	return "", vm.runtimeError("runtime.bad_cast", "unknown format pattern %q", pattern)
}

func (vm *VM) formatDate(v Value, pattern string) (string, error) {
	if v.Type != ValueDate {
		return "", vm.typeError("format "+pattern, "date", v.Type.String())
	}
	t, err := time.Parse("2006-01-02", v.Text)
	if err != nil {
		return "", vm.runtimeError("runtime.bad_cast", "malformed date %q", v.Text)
	}
	switch pattern {
	case "MM/dd/yyyy":
		return t.Format("01/02/2006"), nil
	case "dd/MM/yyyy":
		return t.Format("02/01/2006"), nil
	case "MMM dd, yyyy":
		return t.Format("Jan 02, 2006"), nil
	default: // "long"
		return t.Format("January 2, 2006"), nil
	}
}

func (vm *VM) formatDecimal(v Value, pattern string) (string, error) {
	if !v.IsNumber() {
		return "", vm.typeError("format "+pattern, "decimal", v.Type.String())
	}
	scaled := v.AsDecimalScaled()
	whole := scaled / 100
	frac := scaled % 100
	if frac < 0 {
		frac = -frac
	}
	f := float64(whole) + float64(frac)/100

	switch pattern {
	case "#,##0.00":
		return formatPrinter.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2), number.MinFractionDigits(2))), nil
	case "$0.00":
		return fmt.Sprintf("$%d.%02d", whole, frac), nil
	default: // "0.00"
		return fmt.Sprintf("%d.%02d", whole, frac), nil
	}
}

func (vm *VM) formatInt(v Value, pattern string) (string, error) {
	if !v.IsInt() {
		return "", vm.typeError("format "+pattern, "int", v.Type.String())
	}
	switch pattern {
	case "#,##0":
		return formatPrinter.Sprintf("%v", number.Decimal(v.Int)), nil
	case "0000":
		return fmt.Sprintf("%04d", v.Int), nil
	default: // "hex"
		return fmt.Sprintf("%x", v.Int), nil
	}
}

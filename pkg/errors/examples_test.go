package errors_test

import (
	"fmt"

	"github.com/ctcl-atlas/atlas/pkg/errors"
)

func Example() {
	err := fmt.Errorf("comparing expression: %w", errors.NewUnknownGeneError("TOXX", "TOX"))

	if errors.IsUnknownGene(err) {
		fmt.Println("Gene not in dataset:", err)
	}
	// Output: Gene not in dataset: comparing expression: gene "TOXX" not found (did you mean TOX?)
}

func Example_httpStatusMapping() {
	status := func(err error) int {
		switch {
		case errors.IsUnknownGene(err):
			return 404
		case errors.IsEmptyGroup(err):
			return 422
		case errors.IsValidationError(err):
			return 400
		default:
			return 500
		}
	}

	fmt.Println(status(errors.NewUnknownGeneError("X")))
	fmt.Println(status(errors.NewEmptyGroupError("normal")))
	fmt.Println(status(errors.NewValidationError("target", "x", "unknown group")))
	// Output:
	// 404
	// 422
	// 400
}

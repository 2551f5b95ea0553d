package mapper

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateOrder checks the contextual order data before it is handed to a
// mapping operation. Mappers themselves tolerate a zero Order (they fall
// back to nil canonical fields); callers that want early feedback run this
// at the boundary instead.
func ValidateOrder(order Order) error {
	if err := validate.Struct(order); err != nil {
		return fmt.Errorf("mapper: invalid order: %w", err)
	}

	if order.Amount.IsNegative() {
		return fmt.Errorf("mapper: invalid order: amount %s is negative", order.Amount)
	}

	return nil
}

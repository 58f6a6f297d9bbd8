package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CreateOrderRequest to reject
	// duplicate product ids; a duplicated id can never resolve to a distinct
	// product and would surface downstream as a spurious not-found.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := make(map[string]struct{}, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if _, dup := seen[id]; dup {
			sl.ReportError(req.ProductIDs, "productIds", "ProductIDs", "unique_product_ids", id)
			return
		}
		seen[id] = struct{}{}
	}
}

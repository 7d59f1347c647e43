package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mesa-system/internal/database/models"
	"mesa-system/internal/inventory"
)

// Stock is reserved at order creation, one inventory line per order item,
// keeping the line quantity the kitchen will cook.
func TestDeductLines(t *testing.T) {
	notes := "extra spicy"
	items := []models.OrderItem{
		{ItemName: "Masala Dosa", Quantity: 2, UnitPrice: "80.00"},
		{ItemName: "Filter Coffee", Quantity: 3, UnitPrice: "25.00", Instructions: &notes},
	}

	lines := deductLines(items)

	assert.Equal(t, []inventory.Line{
		{ItemName: "Masala Dosa", Quantity: 2},
		{ItemName: "Filter Coffee", Quantity: 3},
	}, lines)

	assert.Empty(t, deductLines(nil))
}

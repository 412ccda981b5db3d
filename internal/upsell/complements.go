package upsell

import (
	"github.com/shopspring/decimal"

	"acai-delivery-backend/pkg/money"
)

// PaidComplements is the storefront's table of complements sold on top of
// an açaí cup.
func PaidComplements() []money.Complement {
	two := decimal.NewFromInt(2)
	three := decimal.NewFromInt(3)
	return []money.Complement{
		{Name: "AMENDOIN", Price: two},
		{Name: "CASTANHA EM BANDA", Price: three},
		{Name: "CEREJA", Price: two},
		{Name: "CHOCOBALL POWER", Price: two},
		{Name: "CREME DE COOKIES", Price: three},
		{Name: "CHOCOLATE COM AVELÃ (NUTELA)", Price: three},
		{Name: "COBERTURA DE CHOCOLATE", Price: two},
		{Name: "GRANOLA", Price: two},
		{Name: "KIWI", Price: three},
		{Name: "LEITE CONDENSADO", Price: two},
		{Name: "MORANGO", Price: three},
		{Name: "PAÇOCA", Price: two},
	}
}

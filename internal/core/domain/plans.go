package domain

// Plan is a subscription box offering.
type Plan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	OriginalPrice string   `json:"originalPrice"`
	Description   string   `json:"description"`
	Items         []string `json:"items"`
	Popular       bool     `json:"popular"`
}

// Plans is the catalog offered on the storefront.
var Plans = []Plan{
	{
		ID:            "basico",
		Name:          "Básico",
		Price:         "R$ 49,90",
		OriginalPrice: "R$ 69,90",
		Description:   "Perfeito para começar a mimar seu pet",
		Items: []string{
			"3-4 produtos selecionados",
			"1 brinquedo premium",
			"2 petiscos naturais",
			"Ração premium (amostra)",
			"Frete grátis",
		},
	},
	{
		ID:            "premium",
		Name:          "Premium",
		Price:         "R$ 79,90",
		OriginalPrice: "R$ 99,90",
		Description:   "O favorito dos tutores exigentes",
		Items: []string{
			"5-6 produtos selecionados",
			"2 brinquedos premium",
			"3 petiscos gourmet",
			"Ração premium (porção completa)",
			"1 acessório exclusivo",
			"Frete grátis",
			"Personalização avançada",
		},
		Popular: true,
	},
	{
		ID:            "super",
		Name:          "Super Premium",
		Price:         "R$ 129,90",
		OriginalPrice: "R$ 159,90",
		Description:   "A experiência mais completa para seu pet",
		Items: []string{
			"7-8 produtos selecionados",
			"3 brinquedos premium",
			"4 petiscos gourmet",
			"Ração super premium",
			"2 acessórios exclusivos",
			"Produto de higiene premium",
			"Frete grátis",
			"Personalização total",
			"Suporte prioritário",
		},
	},
}

// FindPlan looks a plan up by id.
func FindPlan(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

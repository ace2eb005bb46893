package config

import "github.com/ledgerline/finsight/internal/model"

// DefaultSchema returns the built-in financial field schema. Deployments
// override it via extraction.fields or a standalone schema file.
func DefaultSchema() []model.Field {
	return []model.Field{
		{ID: "finYear", Type: model.FieldTypeInteger,
			Aliases: []string{"exercice", "année", "année fiscale", "fiscal year"}},
		{ID: "finSales", Type: model.FieldTypeDecimal,
			Aliases: []string{"chiffre d'affaires", "CA", "ventes", "sales", "revenus"}},
		{ID: "finProfit", Type: model.FieldTypeDecimal,
			Aliases: []string{"résultat net", "bénéfice", "profit", "net profit"}},
		{ID: "finEquity", Type: model.FieldTypeDecimal,
			Aliases: []string{"capitaux propres", "fonds propres", "equity", "shareholders equity"}},
		{ID: "finCapital", Type: model.FieldTypeDecimal,
			Aliases: []string{"capital social", "capital", "share capital"}},
		{ID: "finBalanceSheet", Type: model.FieldTypeDecimal,
			Aliases: []string{"total actif", "bilan", "balance sheet", "total assets", "actif total"}},
		{ID: "finAvailableFunds", Type: model.FieldTypeDecimal,
			Aliases: []string{"trésorerie", "disponibilités", "available funds", "cash", "liquidités"}},
		{ID: "finOperationInc", Type: model.FieldTypeDecimal,
			Aliases: []string{"résultat d'exploitation", "EBIT", "operating income", "résultat opérationnel"}},
		{ID: "finFinancialInc", Type: model.FieldTypeDecimal,
			Aliases: []string{"résultat financier", "financial income", "résultat financier net"}},
		{ID: "finNonRecurring", Type: model.FieldTypeDecimal,
			Aliases: []string{"résultat exceptionnel", "exceptional income", "non recurring", "éléments exceptionnels", "charges exceptionnelles", "produits exceptionnels"}},
		{ID: "finSecurities", Type: model.FieldTypeDecimal,
			Aliases: []string{"valeurs mobilières", "securities", "titres", "investments"}},
	}
}

// DefaultCriticalFields returns the fields whose absence always forces a
// human review.
func DefaultCriticalFields() []string {
	return []string{"finSales", "finProfit", "finYear"}
}

// DefaultMonetaryFields returns the fields checked for negative values by the
// anomaly detector.
func DefaultMonetaryFields() []string {
	return []string{
		"finSales", "finOperationInc", "finFinancialInc", "finProfit",
		"finBalanceSheet", "finEquity", "finAvailableFunds",
	}
}

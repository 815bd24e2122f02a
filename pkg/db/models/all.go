package models

// All lists every persisted model, in dependency order, for AutoMigrate in local and test runs.
func All() []any {
	return []any{
		&Seller{},
		&Buyer{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Product{},
		&SecondarySku{},
		&ProductMapping{},
		&PendingSale{},
		&ProductHistory{},
		&ProductAudit{},
		&FaztConfiguration{},
		&MonthlyFlexCost{},
		&SellerToken{},
	}
}

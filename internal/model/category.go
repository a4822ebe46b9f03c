package model

// Category is a Quality-of-Earnings adjustment category. The set is closed:
// every adjustment that leaves the pipeline carries one of these values, with
// CategoryOther as the catch-all for anything the model invents.
type Category string

// Adjustment category constants.
const (
	CategoryRevenueRecognition      Category = "revenue_recognition"
	CategoryExpenseAccrual          Category = "expense_accrual"
	CategoryDepreciation            Category = "depreciation"
	CategoryInventoryValuation      Category = "inventory_valuation"
	CategoryBadDebt                 Category = "bad_debt"
	CategoryPrepaidExpenses         Category = "prepaid_expenses"
	CategoryAccruedLiabilities      Category = "accrued_liabilities"
	CategoryPayrollAccrual          Category = "payroll_accrual"
	CategoryRentAdjustment          Category = "rent_adjustment"
	CategoryInsuranceAdjustment     Category = "insurance_adjustment"
	CategoryTaxAdjustment           Category = "tax_adjustment"
	CategoryIntercompanyElimination Category = "intercompany_elimination"
	CategoryReclassification        Category = "reclassification"
	CategoryWriteOff                Category = "write_off"
	CategoryBonusAccrual            Category = "bonus_accrual"
	CategoryCommissionAccrual       Category = "commission_accrual"
	CategoryProfessionalFees        Category = "professional_fees"
	CategoryLitigationReserve       Category = "litigation_reserve"
	CategoryWarrantyReserve         Category = "warranty_reserve"
	CategoryStockCompensation       Category = "stock_compensation"
	CategoryGoodwillImpairment      Category = "goodwill_impairment"
	CategoryAssetImpairment         Category = "asset_impairment"
	CategoryLeaseAdjustment         Category = "lease_adjustment"
	CategoryPensionAdjustment       Category = "pension_adjustment"
	CategoryForeignExchange         Category = "foreign_exchange"
	CategoryRestructuring           Category = "restructuring"
	CategoryAcquisitionAdjustment   Category = "acquisition_adjustment"
	CategoryOther                   Category = "other"
)

// AllCategories returns every category in the closed enumeration, in a stable
// order suitable for prompt construction.
func AllCategories() []Category {
	return []Category{
		CategoryRevenueRecognition,
		CategoryExpenseAccrual,
		CategoryDepreciation,
		CategoryInventoryValuation,
		CategoryBadDebt,
		CategoryPrepaidExpenses,
		CategoryAccruedLiabilities,
		CategoryPayrollAccrual,
		CategoryRentAdjustment,
		CategoryInsuranceAdjustment,
		CategoryTaxAdjustment,
		CategoryIntercompanyElimination,
		CategoryReclassification,
		CategoryWriteOff,
		CategoryBonusAccrual,
		CategoryCommissionAccrual,
		CategoryProfessionalFees,
		CategoryLitigationReserve,
		CategoryWarrantyReserve,
		CategoryStockCompensation,
		CategoryGoodwillImpairment,
		CategoryAssetImpairment,
		CategoryLeaseAdjustment,
		CategoryPensionAdjustment,
		CategoryForeignExchange,
		CategoryRestructuring,
		CategoryAcquisitionAdjustment,
		CategoryOther,
	}
}

// Valid reports whether c is a member of the closed enumeration.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the category's wire value.
func (c Category) String() string {
	return string(c)
}

package templates

import "ledgerflow/internal"

const (
	NameSales     = "sales"
	NamePurchases = "purchases"
	NameUpload    = "upload"
)

func DefaultSales() Template {
	return Template{Name: NameSales, Variants: []Variant{{
		Literal(internal.FieldDocumentType, ""),
		Directed(internal.FieldDocumentDate, ExtractDate),
		Literal(internal.FieldSupplierCode, "CHAINFGU"),
		Literal(internal.FieldEmptyColumn, ""),
		Directed(internal.FieldDocumentNumber, ExtractReference),
		Directed(internal.FieldDescription, ExtractDescription),
		Literal(internal.FieldNC, "4002"),
		Literal(internal.FieldVC, "T0"),
		Directed(internal.FieldLocality, ExtractLocality),
		Literal(internal.FieldTotal, ""),
	}}}
}

func DefaultPurchases() Template {
	return Template{Name: NamePurchases, Variants: []Variant{{
		Literal(internal.FieldDocumentType, "SI"),
		Directed(internal.FieldDocumentDate, ExtractDate),
		Literal(internal.FieldSupplierCode, "CHAINFGU"),
		Directed(internal.FieldDocumentNumber, ExtractReference),
		Directed(internal.FieldDescription, ExtractDescription),
		Literal(internal.FieldNC, "4001"),
		Literal(internal.FieldVC, "T0"),
		Directed(internal.FieldNet, ExtractNet),
		Directed(internal.FieldVAT, ExtractVAT),
	}}}
}

func DefaultUpload() Template {
	return Template{Name: NameUpload, Variants: []Variant{{
		Literal("Type", ""),
		Directed("Account Reference", CopySupplierCode),
		Directed("Nominal A/C Ref", CopyNC),
		Literal("Department Code", ""),
		Directed("Date", ExtractDate),
		Directed("Reference", ExtractReference),
		Directed("Details", ExtractDescription),
		Directed("Net Amount", ExtractNet),
		Literal("Tax Code", "T0"),
		Directed("Tax Amount", ExtractVAT),
	}}}
}

// Default returns the built-in template for a category.
func Default(c internal.Category) Template {
	if c == internal.CategoryPurchases {
		return DefaultPurchases()
	}
	return DefaultSales()
}

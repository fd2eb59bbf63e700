package domain

// CatalogEntry holds the defaults a product category implies for a new
// stop. Explicit values on the request always win; the catalog only
// fills fields the caller left unset.
type CatalogEntry struct {
	Priority    Priority
	Size        ParcelSize
	Description string
}

// categoryCatalog maps a product category key to its defaults.
// Pure lookup data, no state.
var categoryCatalog = map[string]CatalogEntry{
	"pharmacy":    {Priority: PriorityUrgent, Size: SizeSmall, Description: "Pharmacy order"},
	"groceries":   {Priority: PriorityHigh, Size: SizeMedium, Description: "Grocery order"},
	"flowers":     {Priority: PriorityHigh, Size: SizeSmall, Description: "Flower arrangement"},
	"documents":   {Priority: PriorityStandard, Size: SizeSmall, Description: "Document envelope"},
	"electronics": {Priority: PriorityStandard, Size: SizeMedium, Description: "Electronics order"},
	"clothing":    {Priority: PriorityRoutine, Size: SizeMedium, Description: "Clothing order"},
	"furniture":   {Priority: PriorityRoutine, Size: SizeLarge, Description: "Furniture piece"},
	"other":       {Priority: PriorityStandard, Size: SizeMedium, Description: "Retail order"},
}

// ResolveCategory returns the defaults for a product category key.
func ResolveCategory(key string) (CatalogEntry, error) {
	entry, ok := categoryCatalog[key]
	if !ok {
		return CatalogEntry{}, NotFoundf("unknown product category %q", key)
	}
	return entry, nil
}

// Categories lists the known category keys; used for request validation.
func Categories() []string {
	keys := make([]string, 0, len(categoryCatalog))
	for k := range categoryCatalog {
		keys = append(keys, k)
	}
	return keys
}

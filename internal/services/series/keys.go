package series

import "PriceCast/internal/domain/models"

// Keys expands an observation into the distinct hierarchy keys it contributes to:
// for the observation's region and for all regions, the all-categories, category,
// subcategory and product levels. A level stops the chain once it is empty, so a
// product never appears without its category and subcategory.
func Keys(o models.Observation) []models.FilterKey {
	regions := []string{o.Region, ""}
	if o.Region == "" {
		regions = regions[1:]
	}
	out := make([]models.FilterKey, 0, 8)
	for _, region := range regions {
		k := models.FilterKey{Region: region}
		out = append(out, k)
		if o.Category == "" {
			continue
		}
		k.Category = o.Category
		out = append(out, k)
		if o.Subcategory == "" {
			continue
		}
		k.Subcategory = o.Subcategory
		out = append(out, k)
		if o.Product == "" {
			continue
		}
		k.Product = o.Product
		out = append(out, k)
	}
	return out
}

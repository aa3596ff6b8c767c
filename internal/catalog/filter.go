package catalog

import (
	"math"
	"sort"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Sort orders understood by Apply.
const (
	SortPriceLowToHigh = "priceLowToHigh"
	SortPriceHighToLow = "priceHighToLow"
	SortTopRating      = "topRating"
	SortNewestFirst    = "newestFirst"
	SortPopular        = "popular"
)

const DefaultMaxPrice = 100000

// Query is a product listing request. Zero values do not filter.
type Query struct {
	Category    string
	Subcategory string
	MinPrice    float64
	MaxPrice    float64
	Brands      []string
	Ratings     []int
	Sort        string
}

// Category is one top-level category and its subcategories.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	Count         int      `json:"count"`
}

// Taxonomy is the fixed category tree shown in the listing sidebar.
var Taxonomy = []Category{
	{Name: "Electronics", Subcategories: []string{"Mobiles & Accessories", "Laptops & Accessories", "Computers & Components", "Audio & Wearables", "Cameras & Photography", "TVs & Home Entertainment", "Gaming", "Home Appliances", "Networking & Smart Devices", "Electronic Accessories"}},
	{Name: "Clothing", Subcategories: []string{"Men Top Wear", "Men Bottom Wear", "Women Ethnic", "Women Western", "Men Footwear", "Women Footwear"}},
	{Name: "Home & Kitchen", Subcategories: []string{"Furniture", "Kitchen & Dining", "Home Decor", "Bed Linens", "Bath"}},
	{Name: "Beauty", Subcategories: []string{"Makeup", "Skincare", "Haircare", "Fragrances", "Personal Care"}},
	{Name: "Sports", Subcategories: []string{"Fitness", "Outdoor", "Team Sports", "Water Sports", "Cycling"}},
	{Name: "Books", Subcategories: []string{"Fiction", "Non-Fiction", "Academic", "Children Books", "Best Sellers"}},
	{Name: "Toys", Subcategories: []string{"Action Figures", "Educational", "Outdoor Toys", "Board Games", "Puzzles"}},
	{Name: "Accessories", Subcategories: []string{"Watches", "Bags", "Jewelry", "Sunglasses", "Belts"}},
	{Name: "Grocery", Subcategories: []string{"Food Cupboard", "Beverages", "Snacks", "Dairy", "Frozen Foods"}},
	{Name: "Furniture", Subcategories: []string{"Living Room", "Bedroom", "Dining Room", "Office", "Outdoor"}},
}

// Apply filters and sorts products without modifying the input.
func Apply(products []models.Product, q Query) []models.Product {
	maxPrice := q.MaxPrice
	if maxPrice <= 0 {
		maxPrice = math.Inf(1)
	}

	brands := make(map[string]bool, len(q.Brands))
	for _, b := range q.Brands {
		brands[b] = true
	}
	ratings := make(map[int]bool, len(q.Ratings))
	for _, r := range q.Ratings {
		ratings[r] = true
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Subcategory != "" && p.Subcategory != q.Subcategory {
			continue
		}
		if p.Price < q.MinPrice || p.Price > maxPrice {
			continue
		}
		if len(brands) > 0 && !brands[p.Brand] {
			continue
		}
		if len(ratings) > 0 && !ratings[int(math.Floor(p.AverageRating))] {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, q.Sort)
	return out
}

func sortProducts(products []models.Product, order string) {
	var less func(a, b models.Product) bool
	switch order {
	case SortPriceLowToHigh:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case SortPriceHighToLow:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case SortTopRating:
		less = func(a, b models.Product) bool { return a.AverageRating > b.AverageRating }
	case SortNewestFirst:
		less = func(a, b models.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortPopular:
		less = func(a, b models.Product) bool { return a.SoldCount > b.SoldCount }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// Brands returns the distinct non-empty brands in first-seen order.
func Brands(products []models.Product) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range products {
		if p.Brand == "" || seen[p.Brand] {
			continue
		}
		seen[p.Brand] = true
		out = append(out, p.Brand)
	}
	return out
}

// Categories returns Taxonomy with the number of products in each category.
func Categories(products []models.Product) []Category {
	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}
	out := make([]Category, len(Taxonomy))
	for i, c := range Taxonomy {
		c.Count = counts[c.Name]
		out[i] = c
	}
	return out
}

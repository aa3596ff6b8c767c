package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

func sampleProducts() []models.Product {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Product{
		{ID: 1, Name: "Phone", Price: 15000, Category: "Electronics", Subcategory: "Mobiles & Accessories", Brand: "Acme", AverageRating: 4.6, SoldCount: 40, Stock: 3, CreatedAt: base},
		{ID: 2, Name: "Earbuds", Price: 2500, Category: "Electronics", Subcategory: "Audio & Wearables", Brand: "Sonic", AverageRating: 3.2, SoldCount: 90, Stock: 10, CreatedAt: base.Add(48 * time.Hour)},
		{ID: 3, Name: "Kurta", Price: 900, Category: "Clothing", Subcategory: "Women Ethnic", Brand: "Weave", AverageRating: 4.1, SoldCount: 15, Stock: 7, CreatedAt: base.Add(24 * time.Hour)},
		{ID: 4, Name: "Charger", Price: 900, Category: "Electronics", Subcategory: "Mobiles & Accessories", Brand: "Acme", SoldCount: 5, Stock: 0, CreatedAt: base.Add(72 * time.Hour)},
	}
}

func ids(products []models.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestApply(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{name: "no filters", query: Query{}, want: []int64{1, 2, 3, 4}},
		{name: "category", query: Query{Category: "Electronics"}, want: []int64{1, 2, 4}},
		{name: "subcategory", query: Query{Subcategory: "Mobiles & Accessories"}, want: []int64{1, 4}},
		{name: "price range", query: Query{MinPrice: 1000, MaxPrice: 5000}, want: []int64{2}},
		{name: "brands", query: Query{Brands: []string{"Acme", "Weave"}}, want: []int64{1, 3, 4}},
		{name: "rating floor", query: Query{Ratings: []int{4}}, want: []int64{1, 3}},
		{name: "unrated counts as zero", query: Query{Ratings: []int{0}}, want: []int64{4}},
		{name: "price low to high is stable", query: Query{Sort: SortPriceLowToHigh}, want: []int64{3, 4, 2, 1}},
		{name: "price high to low", query: Query{Sort: SortPriceHighToLow}, want: []int64{1, 2, 3, 4}},
		{name: "top rating", query: Query{Sort: SortTopRating}, want: []int64{1, 3, 2, 4}},
		{name: "newest first", query: Query{Sort: SortNewestFirst}, want: []int64{4, 2, 3, 1}},
		{name: "popular", query: Query{Sort: SortPopular}, want: []int64{2, 1, 3, 4}},
		{name: "unknown sort keeps order", query: Query{Sort: "random"}, want: []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(products, tt.query)))
		})
	}

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(products), "input must not be reordered")
}

func TestBrandsAndCategories(t *testing.T) {
	products := sampleProducts()

	assert.Equal(t, []string{"Acme", "Sonic", "Weave"}, Brands(products))

	cats := Categories(products)
	require.Len(t, cats, len(Taxonomy))
	assert.Equal(t, "Electronics", cats[0].Name)
	assert.Equal(t, 3, cats[0].Count)
	assert.Equal(t, 1, cats[1].Count)
	assert.Zero(t, Taxonomy[0].Count)
}

func newCachedService(t *testing.T) (*Service, *clients.MockBackend, *int) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := repository.NewRedisCatalogCache(client, time.Minute)
	hits := new(int)
	cache.OnLookup = func(hit bool) {
		if hit {
			*hits++
		}
	}

	backend := clients.NewMockBackend()
	for _, p := range sampleProducts() {
		backend.Products[p.ID] = p
	}
	return NewService(backend, cache), backend, hits
}

func TestProducts_Cached(t *testing.T) {
	svc, backend, hits := newCachedService(t)
	ctx := context.Background()

	first, err := svc.Products(ctx)
	require.NoError(t, err)
	second, err := svc.Products(ctx)
	require.NoError(t, err)

	assert.Len(t, first, 4)
	assert.Len(t, second, 4)
	assert.Equal(t, 1, backend.Calls("ListProducts"))
	assert.Equal(t, 1, *hits)
}

func TestSearch_SubcategoryWithoutCache(t *testing.T) {
	svc, backend, _ := newCachedService(t)

	listing, err := svc.Search(context.Background(), Query{Subcategory: "Women Ethnic"})
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, ids(listing.Products))
	assert.Equal(t, 1, backend.Calls("ProductsBySubcategory"))
	assert.Zero(t, backend.Calls("ListProducts"))
}

func TestSearch_SubcategoryFromCache(t *testing.T) {
	svc, backend, _ := newCachedService(t)
	ctx := context.Background()
	_, err := svc.Products(ctx)
	require.NoError(t, err)

	listing, err := svc.Search(ctx, Query{Subcategory: "Mobiles & Accessories", Sort: SortPriceLowToHigh})
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 1}, ids(listing.Products))
	assert.Equal(t, 2, listing.Total)
	assert.Zero(t, backend.Calls("ProductsBySubcategory"))
	assert.Equal(t, []string{"Acme", "Sonic", "Weave"}, listing.Brands)
}

func TestDetail(t *testing.T) {
	backend := clients.NewMockBackend()
	for _, p := range sampleProducts() {
		backend.Products[p.ID] = p
	}
	backend.Carts[5] = []models.CartItem{{ID: 1, UserID: 5, ProductID: 2, Quantity: 1}}
	backend.Reviews[2] = []models.Review{{ID: 9, ProductID: 2, Rating: 5, Comment: "Great"}}
	svc := NewService(backend, nil)
	ctx := context.Background()

	t.Run("membership and reviews", func(t *testing.T) {
		d, err := svc.Detail(ctx, 5, 2)
		require.NoError(t, err)
		assert.True(t, d.InCart)
		assert.False(t, d.InWishlist)
		assert.Len(t, d.Reviews, 1)
	})

	t.Run("secondary failures are tolerated", func(t *testing.T) {
		backend.Fail("ProductReviews", errors.New("timeout"))
		backend.Fail("GetWishlist", errors.New("timeout"))
		defer backend.Fail("ProductReviews", nil)
		defer backend.Fail("GetWishlist", nil)

		d, err := svc.Detail(ctx, 5, 2)
		require.NoError(t, err)
		assert.Empty(t, d.Reviews)
		assert.True(t, d.InCart)
	})

	t.Run("anonymous skips user lookups", func(t *testing.T) {
		before := backend.Calls("GetCart")
		_, err := svc.Detail(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, before, backend.Calls("GetCart"))
	})

	t.Run("missing product is fatal", func(t *testing.T) {
		_, err := svc.Detail(ctx, 5, 404)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestAddToCart(t *testing.T) {
	backend := clients.NewMockBackend()
	for _, p := range sampleProducts() {
		backend.Products[p.ID] = p
	}
	svc := NewService(backend, nil)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 5, 1, 2)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, 1, backend.Calls("GetCart"))

	_, err = svc.AddToCart(ctx, 5, 1, 0)
	assert.Error(t, err)

	_, err = svc.AddToCart(ctx, 5, 4, 1)
	assert.Error(t, err, "out of stock")
}

func TestToggleWishlist(t *testing.T) {
	backend := clients.NewMockBackend()
	svc := NewService(backend, nil)
	ctx := context.Background()

	in, err := svc.ToggleWishlist(ctx, 5, 3)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = svc.ToggleWishlist(ctx, 5, 3)
	require.NoError(t, err)
	assert.False(t, in)
	assert.Equal(t, 1, backend.Calls("AddToWishlist"))
	assert.Equal(t, 1, backend.Calls("RemoveFromWishlist"))
}

package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/cache"
	"finitefield.org/webshop/internal/rpc"
)

func TestViewModes(t *testing.T) {
	require.Equal(t, ListView, ViewModeOrDefault(""))
	require.Equal(t, ListView, ViewModeOrDefault("Carousel"))
	require.Equal(t, GridView, ViewModeOrDefault("Grid View"))
	require.True(t, GridView.IsGrid())

	_, err := ParseViewMode("grid")
	require.True(t, errors.Is(err, ErrInvalidViewMode))
}

func TestListingPagination(t *testing.T) {
	l := ProductListing{Start: 0, PageLength: 2, Total: 5}
	require.False(t, l.HasPrev())
	require.True(t, l.HasNext())
	require.Equal(t, 2, l.NextStart())

	l.Start = 4
	require.True(t, l.HasPrev())
	require.False(t, l.HasNext())
	require.Equal(t, 2, l.PrevStart())

	l.Start = 1
	require.Equal(t, 0, l.PrevStart())
}

func newFakeCatalog() (*CatalogService, *rpc.Fake) {
	client := rpc.NewClient("")
	settings := NewSettings(client, cache.NewMemory(), time.Minute)
	return NewCatalogService(client, settings), client.Fake()
}

func TestListingDefaultsPageLength(t *testing.T) {
	svc, fake := newFakeCatalog()
	fake.SetSetting(DocTypeWebshopSettings, FieldProductsPerPage, 0)

	listing, err := svc.Listing(context.Background(), ListingQuery{})
	require.NoError(t, err)
	require.Equal(t, DefaultPageLength, listing.PageLength)
	require.Equal(t, 4, listing.Total)
	require.Len(t, listing.Items, 4)
}

func TestListingItemGroupAndSearch(t *testing.T) {
	svc, _ := newFakeCatalog()

	listing, err := svc.Listing(context.Background(), ListingQuery{ItemGroup: "Apparel"})
	require.NoError(t, err)
	require.Equal(t, "Apparel", listing.ItemGroup)
	require.Len(t, listing.Items, 2)
	for _, card := range listing.Items {
		require.Equal(t, "Apparel", card.ItemGroup)
	}

	listing, err = svc.Listing(context.Background(), ListingQuery{Search: "kettle"})
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.Equal(t, "SKU-KETTLE", listing.Items[0].ItemCode)
	require.True(t, listing.Items[0].InStock)
}

func TestListingSendsQueryArgs(t *testing.T) {
	backend := newStubCaller()
	backend.results[rpc.MethodGetSingleValue] = 12
	backend.results[rpc.MethodGetProductFilterData] = map[string]any{"items": []any{}, "items_count": 0}
	svc := NewCatalogService(backend, NewSettings(backend, nil, time.Minute))

	listing, err := svc.Listing(context.Background(), ListingQuery{ItemGroup: "Kitchen", Start: 24, Search: "mug"})
	require.NoError(t, err)
	require.Equal(t, 12, listing.PageLength)

	args := backend.callsTo(rpc.MethodGetProductFilterData)[0].args["query_args"].(map[string]any)
	require.Equal(t, "Kitchen", args["item_group"])
	require.EqualValues(t, 24, args["start"])
	require.Equal(t, "mug", args["search"])
	require.NotNil(t, args["field_filters"])
}

func TestListingToleratesSettingsFailure(t *testing.T) {
	backend := newStubCaller()
	backend.errs[rpc.MethodGetSingleValue] = errors.New("settings down")
	backend.results[rpc.MethodGetProductFilterData] = map[string]any{"items_count": 0}
	svc := NewCatalogService(backend, NewSettings(backend, nil, time.Minute))

	listing, err := svc.Listing(context.Background(), ListingQuery{})
	require.NoError(t, err)
	require.Equal(t, DefaultPageLength, listing.PageLength)
}

func TestProductInfoAndWishlist(t *testing.T) {
	svc, _ := newFakeCatalog()
	ctx := rpc.WithSessionID(context.Background(), "wisher")

	info, err := svc.ProductInfo(ctx, "SKU-TEE")
	require.NoError(t, err)
	require.True(t, info.HasPrice)
	require.False(t, info.InStock)
	require.Equal(t, "$ 25.00", info.FormattedPrice)
	require.True(t, info.CartEnabled)

	require.NoError(t, svc.AddToWishlist(ctx, "SKU-TEE"))
	listing, err := svc.Listing(ctx, ListingQuery{Search: "t-shirt"})
	require.NoError(t, err)
	require.True(t, listing.Items[0].Wished)

	require.NoError(t, svc.RemoveFromWishlist(ctx, "SKU-TEE"))
	listing, err = svc.Listing(ctx, ListingQuery{Search: "t-shirt"})
	require.NoError(t, err)
	require.False(t, listing.Items[0].Wished)

	require.ErrorIs(t, svc.AddToWishlist(ctx, " "), ErrInvalidInput)
}

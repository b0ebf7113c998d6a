package cartsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newRemoteFixture(t *testing.T) (*RemoteCartClient, *fakeCommerce, *cartstore.Store) {
	t.Helper()
	api := newFakeCommerce(productA, productB)
	store := cartstore.New(memory.NewKVStore(), "sess-remote", nil)
	return NewRemoteCartClient(api, store, nil), api, store
}

var storeCtx = domain.StoreContext{RegionID: "reg_eu"}

func TestGetOrCreateCart_ReusesRememberedCart(t *testing.T) {
	client, api, _ := newRemoteFixture(t)
	ctx := context.Background()

	first, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.NoError(t, err)
	second, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, api.callCount("create_cart"))
}

func TestGetOrCreateCart_ReplacesUnusableCart(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(t *testing.T, client *RemoteCartClient, api *fakeCommerce, id domain.CartID)
		caller  string
	}{
		{
			name:   "belongs to another customer",
			caller: "cus_2",
			prepare: func(*testing.T, *RemoteCartClient, *fakeCommerce, domain.CartID) {
			},
		},
		{
			name:   "already completed",
			caller: "cus_1",
			prepare: func(t *testing.T, _ *RemoteCartClient, api *fakeCommerce, id domain.CartID) {
				_, err := api.CompleteCart(context.Background(), id)
				require.NoError(t, err)
			},
		},
		{
			name:   "expired",
			caller: "cus_1",
			prepare: func(_ *testing.T, _ *RemoteCartClient, api *fakeCommerce, id domain.CartID) {
				api.expire(id)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, api, store := newRemoteFixture(t)
			ctx := context.Background()

			oldID, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
			require.NoError(t, err)
			tc.prepare(t, client, api, oldID)

			newID, err := client.GetOrCreateCart(ctx, storeCtx, tc.caller)
			require.NoError(t, err)
			require.NotEqual(t, oldID, newID)

			remembered, ok := store.CartID(ctx)
			require.True(t, ok)
			require.Equal(t, newID, remembered)

			cart, ok := api.cart(newID)
			require.True(t, ok)
			require.Equal(t, tc.caller, cart.CustomerID)
		})
	}
}

func TestGetOrCreateCart_TransientErrorKeepsRememberedCart(t *testing.T) {
	client, api, store := newRemoteFixture(t)
	ctx := context.Background()

	id, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.NoError(t, err)

	api.failNext("get_cart", transientErr("get_cart"))
	_, err = client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.ErrorIs(t, err, domain.ErrRemoteTransient)

	remembered, ok := store.CartID(ctx)
	require.True(t, ok)
	require.Equal(t, id, remembered)
	require.Equal(t, 1, api.callCount("create_cart"))
}

func TestFetchCart_ReturnsEmptyOnError(t *testing.T) {
	client, api, _ := newRemoteFixture(t)
	ctx := context.Background()

	id, err := client.GetOrCreateCart(ctx, storeCtx, "")
	require.NoError(t, err)
	_, err = client.AddLine(ctx, id, productA.VariantID, 2)
	require.NoError(t, err)

	require.Equal(t, []string{"prod_a×2"}, summary(client.FetchCart(ctx, id)))

	api.failNext("get_cart", transientErr("get_cart"))
	require.Empty(t, client.FetchCart(ctx, id))
	require.Empty(t, client.FetchCart(ctx, "cart_unknown"))
}

func TestRemoteLineMutations_WriteThroughMirror(t *testing.T) {
	client, _, store := newRemoteFixture(t)
	ctx := context.Background()

	id, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.NoError(t, err)

	_, err = client.AddLine(ctx, id, productA.VariantID, 1)
	require.NoError(t, err)
	_, err = client.AddLine(ctx, id, productB.VariantID, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"prod_a×1", "prod_b×1"}, summary(store.GetLocalCart(ctx)))

	_, err = client.UpdateLineQuantity(ctx, id, productB.ID, 5)
	require.NoError(t, err)
	require.Equal(t, []string{"prod_a×1", "prod_b×5"}, summary(store.GetLocalCart(ctx)))

	_, err = client.UpdateLineQuantity(ctx, id, "prod_missing", 2)
	require.ErrorIs(t, err, domain.ErrLineNotFound)

	lines, err := client.UpdateLineQuantity(ctx, id, productA.ID, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"prod_b×5"}, summary(lines))
	require.Equal(t, []string{"prod_b×5"}, summary(store.GetLocalCart(ctx)))
}

func TestRemoteCompleteCart_ClearsLocalState(t *testing.T) {
	client, _, store := newRemoteFixture(t)
	ctx := context.Background()

	id, err := client.GetOrCreateCart(ctx, storeCtx, "cus_1")
	require.NoError(t, err)
	_, err = client.AddLine(ctx, id, productA.VariantID, 1)
	require.NoError(t, err)

	completed, err := client.CompleteCart(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, completed.CartID)
	require.Empty(t, store.GetLocalCart(ctx))
	_, ok := store.CartID(ctx)
	require.False(t, ok)

	_, err = client.CompleteCart(ctx, "cart_unknown")
	require.True(t, domain.IsStaleCart(err))
}

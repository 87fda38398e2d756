package service

import (
	"context"
	"testing"

	"locarto/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReviewRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.signup(t, model.RoleVendor, "acme")
	alice := f.signup(t, model.RoleConsumer, "alice")
	p := f.product(t, vendor, "Mouse", "25.99", 5)
	in := ReviewInput{Stars: 5, Title: "Great", Content: "Clicks nicely"}

	_, err := f.reviews.AddReview(ctx, alice, p.ID, in)
	require.ErrorIs(t, err, ErrForbidden)

	order := f.placeOrder(t, alice, p)
	_, err = f.orders.CancelOrder(ctx, alice, order.ID)
	require.NoError(t, err)
	_, err = f.reviews.AddReview(ctx, alice, p.ID, in)
	require.ErrorIs(t, err, ErrForbidden, "cancelled orders do not count")

	f.placeOrder(t, alice, p)
	review, err := f.reviews.AddReview(ctx, alice, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 5, review.Stars)

	_, err = f.reviews.AddReview(ctx, alice, p.ID, in)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.reviews.AddReview(ctx, alice, 9999, in)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddReviewStarsRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.signup(t, model.RoleVendor, "acme")
	alice := f.signup(t, model.RoleConsumer, "alice")
	p := f.product(t, vendor, "Mouse", "25.99", 5)
	f.placeOrder(t, alice, p)

	for _, stars := range []int{0, 6, -1} {
		_, err := f.reviews.AddReview(ctx, alice, p.ID, ReviewInput{Stars: stars})
		assert.ErrorIs(t, err, ErrValidation, "stars=%d", stars)
	}
}

func TestReviewRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.signup(t, model.RoleVendor, "acme")
	other := f.signup(t, model.RoleVendor, "globex")
	alice := f.signup(t, model.RoleConsumer, "alice")
	bob := f.signup(t, model.RoleConsumer, "bob")
	admin := f.signup(t, model.RoleAdmin, "root")
	p := f.product(t, vendor, "Mouse", "25.99", 5)
	f.placeOrder(t, alice, p)
	f.placeOrder(t, bob, p)

	first, err := f.reviews.AddReview(ctx, alice, p.ID, ReviewInput{Stars: 5, Title: "Great", Images: []string{"consumer/1/a.jpg"}})
	require.NoError(t, err)
	second, err := f.reviews.AddReview(ctx, bob, p.ID, ReviewInput{Stars: 2, Title: "Meh"})
	require.NoError(t, err)

	reviews, summary, err := f.reviews.GetReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, first.ID, reviews[0].ID)
	assert.Equal(t, second.ID, reviews[1].ID)
	assert.Equal(t, []string{"consumer/1/a.jpg"}, reviews[0].Images)
	assert.Equal(t, int64(2), summary.Count)
	assert.InDelta(t, 3.5, summary.AverageRating, 0.001)

	_, err = f.reviews.ReplyToReview(ctx, other, first.ID, "not mine")
	assert.ErrorIs(t, err, ErrForbidden)

	replied, err := f.reviews.ReplyToReview(ctx, vendor, first.ID, "Thanks!")
	require.NoError(t, err)
	require.NotNil(t, replied.VendorReply)
	assert.Equal(t, "Thanks!", *replied.VendorReply)

	replied, err = f.reviews.ReplyToReview(ctx, vendor, first.ID, "Thanks again!")
	require.NoError(t, err)
	assert.Equal(t, "Thanks again!", *replied.VendorReply)

	_, err = f.reviews.DeleteReply(ctx, vendor, first.ID)
	require.NoError(t, err)
	reviews, _, err = f.reviews.GetReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, reviews[0].VendorReply)

	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, bob, first.ID), ErrForbidden)
	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, vendor, first.ID), ErrForbidden)
	require.NoError(t, f.reviews.DeleteReview(ctx, alice, first.ID))
	require.NoError(t, f.reviews.DeleteReview(ctx, admin, second.ID))

	reviews, summary, err = f.reviews.GetReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Zero(t, summary.AverageRating)
}

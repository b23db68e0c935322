package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/mykafka"
)

const maxCommentLen = 2000

var (
	ErrValidation       = errors.New("validation")
	ErrRatingOutOfRange = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrNotPurchased     = errors.New("product was not purchased by this customer")
	ErrDuplicateReview  = errors.New("product already reviewed by this customer")
	ErrReviewNotFound   = errors.New("review not found")
	ErrForbidden        = errors.New("review belongs to another customer")
)

type ReviewCreated struct {
	ReviewID   uint   `json:"review_id"`
	CustomerID uint   `json:"customer_id"`
	ProductID  uint   `json:"product_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

// Gate admits a review only from a customer with a committed order line
// for the product.
type Gate struct {
	DB     *gorm.DB
	Events mykafka.Publisher
}

func (g *Gate) CreateReview(ctx context.Context, customerID, productID uint, rating int, comment string) (*models.Review, error) {
	l := logging.FromContext(ctx).With("svc", "reviews.create", "customer_id", customerID, "product_id", productID)

	if rating < 1 || rating > 5 {
		return nil, ErrRatingOutOfRange
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment longer than %d", ErrValidation, maxCommentLen)
	}

	bought, err := g.purchased(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	if !bought {
		l.Warn("review_rejected", "reason", "not purchased")
		return nil, ErrNotPurchased
	}

	rv := models.Review{
		CustomerID: customerID,
		ProductID:  productID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := g.DB.WithContext(ctx).Create(&rv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("review_rejected", "reason", "duplicate")
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	l.Info("review_created", "review_id", rv.ID, "rating", rating)
	g.publish(ctx, rv)
	return &rv, nil
}

func (g *Gate) purchased(ctx context.Context, customerID, productID uint) (bool, error) {
	var n int64
	err := g.DB.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.customer_id = ? AND order_items.product_id = ?", customerID, productID).
		Count(&n).Error
	return n > 0, err
}

func (g *Gate) publish(ctx context.Context, rv models.Review) {
	if g.Events == nil {
		return
	}
	key := strconv.FormatUint(uint64(rv.ProductID), 10)
	env, err := mykafka.NewEnvelope(mykafka.EventReviewCreated, key, ReviewCreated{
		ReviewID:   rv.ID,
		CustomerID: rv.CustomerID,
		ProductID:  rv.ProductID,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
	})
	if err == nil {
		err = g.Events.PublishEvent(ctx, mykafka.TopicReviewEvents, key, env)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "event", mykafka.EventReviewCreated, "error", err)
	}
}

type ProductReviews struct {
	ProductID uint            `json:"product_id"`
	Average   float64         `json:"average"`
	Count     int64           `json:"count"`
	Reviews   []models.Review `json:"reviews"`
}

func (g *Gate) ListForProduct(ctx context.Context, productID uint) (*ProductReviews, error) {
	out := &ProductReviews{ProductID: productID, Reviews: []models.Review{}}
	if err := g.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&out.Reviews).Error; err != nil {
		return nil, err
	}

	var sum int64
	for _, rv := range out.Reviews {
		sum += int64(rv.Rating)
	}
	out.Count = int64(len(out.Reviews))
	if out.Count > 0 {
		out.Average = math.Round(float64(sum)/float64(out.Count)*100) / 100
	}
	return out, nil
}

func (g *Gate) ListForCustomer(ctx context.Context, customerID uint) ([]models.Review, error) {
	out := []models.Review{}
	err := g.DB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Reviewable lists live products the customer bought and has not reviewed.
func (g *Gate) Reviewable(ctx context.Context, customerID uint) ([]models.Product, error) {
	db := g.DB.WithContext(ctx)
	bought := db.Model(&models.OrderItem{}).
		Select("order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.customer_id = ?", customerID)
	reviewed := db.Model(&models.Review{}).
		Select("product_id").
		Where("customer_id = ?", customerID)

	out := []models.Product{}
	err := db.Where("id IN (?)", bought).
		Where("id NOT IN (?)", reviewed).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// Delete removes a review owned by customerID; admins may remove any.
func (g *Gate) Delete(ctx context.Context, reviewID, customerID uint, admin bool) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rv models.Review
		err := tx.Where("id = ?", reviewID).Take(&rv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrReviewNotFound, reviewID)
		}
		if err != nil {
			return err
		}
		if rv.CustomerID != customerID && !admin {
			return ErrForbidden
		}
		return tx.Delete(&rv).Error
	})
}

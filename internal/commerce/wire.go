package commerce

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type createCartBody struct {
	RegionID       string `json:"region_id,omitempty"`
	SalesChannelID string `json:"sales_channel_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
}

type lineItemBody struct {
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type cartEnvelope struct {
	Cart cartDTO `json:"cart"`
}

type deleteLineEnvelope struct {
	ID      string  `json:"id"`
	Deleted bool    `json:"deleted"`
	Parent  cartDTO `json:"parent"`
}

type completeEnvelope struct {
	Type  string `json:"type"`
	Order struct {
		ID string `json:"id"`
	} `json:"order"`
	Error errorBody `json:"error"`
}

type productsEnvelope struct {
	Products []productDTO `json:"products"`
	Count    int          `json:"count"`
}

type productEnvelope struct {
	Product productDTO `json:"product"`
}

type cartDTO struct {
	ID          string        `json:"id"`
	CustomerID  string        `json:"customer_id"`
	RegionID    string        `json:"region_id"`
	CompletedAt *time.Time    `json:"completed_at"`
	Items       []lineItemDTO `json:"items"`
}

type lineItemDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Category  string `json:"product_type"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type productDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Handle    string `json:"handle"`
	Thumbnail string `json:"thumbnail"`
	Type      *struct {
		Value string `json:"value"`
	} `json:"type"`
	Variants []struct {
		ID    string `json:"id"`
		Price *struct {
			Amount int64 `json:"calculated_amount"`
		} `json:"calculated_price"`
	} `json:"variants"`
}

func (c cartDTO) toDomain() domain.RemoteCart {
	items := make([]domain.RemoteLineItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, domain.RemoteLineItem{
			ID:             it.ID,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Title:          it.Title,
			Thumbnail:      it.Thumbnail,
			Category:       it.Category,
			Quantity:       it.Quantity,
			UnitPriceMinor: it.UnitPrice,
		})
	}
	return domain.RemoteCart{
		ID:          domain.CartID(c.ID),
		CustomerID:  c.CustomerID,
		RegionID:    c.RegionID,
		CompletedAt: c.CompletedAt,
		Items:       items,
	}
}

// toDomain берёт первый вариант товара: витрина продаёт товары без выбора опций.
func (p productDTO) toDomain() domain.Product {
	product := domain.Product{
		ID:        p.ID,
		Title:     p.Title,
		Handle:    p.Handle,
		Thumbnail: p.Thumbnail,
	}
	if p.Type != nil {
		product.Category = p.Type.Value
	}
	if len(p.Variants) > 0 {
		product.VariantID = p.Variants[0].ID
		if p.Variants[0].Price != nil {
			product.UnitPriceMinor = p.Variants[0].Price.Amount
		}
	}
	return product
}

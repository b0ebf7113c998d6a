package domain

// CartID — непрозрачный идентификатор незавершённой удалённой корзины.
type CartID string

// ProductSnapshot — данные товара, сохранённые в позиции для мгновенной отрисовки.
type ProductSnapshot struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Category string `json:"category,omitempty"`
}

// CartLine — одна позиция корзины.
type CartLine struct {
	ProductID string `json:"product_id"`
	// VariantID — ссылка на товар в commerce API; по умолчанию совпадает с ProductID.
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64           `json:"unit_price_minor"`
	Product        ProductSnapshot `json:"product"`
}

// Ref возвращает ссылку на товар для commerce API.
func (l CartLine) Ref() string {
	if l.VariantID != "" {
		return l.VariantID
	}
	return l.ProductID
}

// Validate проверяет инварианты одной позиции.
func (l CartLine) Validate() []error {
	var errs []error
	if l.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if l.Quantity <= 0 {
		errs = append(errs, ErrLineQtyInvalid)
	}
	if l.UnitPriceMinor < 0 {
		errs = append(errs, ErrLinePriceInvalid)
	}
	return errs
}

// Lines — упорядоченный список позиций корзины.
// Все операции чистые: исходный срез не изменяется.
type Lines []CartLine

// Clone возвращает независимую копию списка.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return Lines{}
	}
	out := make(Lines, len(ls))
	copy(out, ls)
	return out
}

// Find возвращает позицию по product_id.
func (ls Lines) Find(productID string) (CartLine, bool) {
	for _, l := range ls {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Upsert добавляет позицию или увеличивает количество существующей.
// Снимок товара и цена обновляются значениями из line.
func (ls Lines) Upsert(line CartLine) Lines {
	out := ls.Clone()
	for i := range out {
		if out[i].ProductID != line.ProductID {
			continue
		}
		out[i].Quantity += line.Quantity
		out[i].UnitPriceMinor = line.UnitPriceMinor
		if line.Product.Name != "" {
			out[i].Product = line.Product
		}
		if line.VariantID != "" {
			out[i].VariantID = line.VariantID
		}
		if out[i].Quantity <= 0 {
			return out.Remove(line.ProductID)
		}
		return out
	}
	if line.Quantity <= 0 {
		return out
	}
	return append(out, line)
}

// SetQuantity задаёт количество; значение <= 0 удаляет позицию.
func (ls Lines) SetQuantity(productID string, qty int) Lines {
	if qty <= 0 {
		return ls.Remove(productID)
	}
	out := ls.Clone()
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = qty
			break
		}
	}
	return out
}

// Remove удаляет позицию с указанным product_id.
func (ls Lines) Remove(productID string) Lines {
	out := make(Lines, 0, len(ls))
	for _, l := range ls {
		if l.ProductID == productID {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Normalize приводит произвольный список (например, из повреждённого хранилища) к инвариантам:
// позиции с пустым id и нулевым количеством отбрасываются, дубликаты склеиваются с сохранением порядка.
func (ls Lines) Normalize() Lines {
	out := make(Lines, 0, len(ls))
	for _, l := range ls {
		if l.ProductID == "" || l.Quantity <= 0 || l.UnitPriceMinor < 0 {
			continue
		}
		out = out.Upsert(l)
	}
	return out
}

// Validate проверяет инварианты корзины: уникальный product_id и положительное количество.
func (ls Lines) Validate() []error {
	var errs []error
	seen := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		errs = append(errs, l.Validate()...)
		if _, dup := seen[l.ProductID]; dup {
			errs = append(errs, ErrDuplicateLine)
		}
		seen[l.ProductID] = struct{}{}
	}
	return errs
}

// ItemCount возвращает суммарное количество единиц товара.
func (ls Lines) ItemCount() int {
	var n int
	for _, l := range ls {
		n += l.Quantity
	}
	return n
}

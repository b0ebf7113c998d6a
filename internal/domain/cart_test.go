package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func line(id string, qty int, price int64) domain.CartLine {
	return domain.CartLine{
		ProductID:      id,
		Quantity:       qty,
		UnitPriceMinor: price,
		Product:        domain.ProductSnapshot{Name: "product " + id},
	}
}

func TestLinesUpsert_MergesQuantities(t *testing.T) {
	lines := domain.Lines{}.Upsert(line("x", 2, 100)).Upsert(line("x", 3, 100))

	want := domain.Lines{line("x", 5, 100)}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestLinesUpsert_AppendsInOrder(t *testing.T) {
	lines := domain.Lines{}.Upsert(line("a", 1, 10)).Upsert(line("b", 1, 20)).Upsert(line("a", 1, 10))

	if len(lines) != 2 || lines[0].ProductID != "a" || lines[1].ProductID != "b" {
		t.Fatalf("unexpected order: %+v", lines)
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %d", lines[0].Quantity)
	}
}

func TestLinesUpsert_DoesNotMutateReceiver(t *testing.T) {
	original := domain.Lines{line("a", 1, 10)}
	_ = original.Upsert(line("a", 4, 10))

	if original[0].Quantity != 1 {
		t.Fatalf("receiver mutated: %+v", original)
	}
}

func TestLinesSetQuantity(t *testing.T) {
	lines := domain.Lines{line("a", 1, 10), line("b", 2, 20)}

	updated := lines.SetQuantity("b", 7)
	if got, _ := updated.Find("b"); got.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", got.Quantity)
	}

	// Повторный вызов с тем же количеством даёт тот же результат.
	if diff := cmp.Diff(updated, updated.SetQuantity("b", 7)); diff != "" {
		t.Fatalf("SetQuantity is not idempotent:\n%s", diff)
	}

	removed := lines.SetQuantity("a", 0)
	if _, ok := removed.Find("a"); ok {
		t.Fatal("expected non-positive quantity to remove the line")
	}
	if errs := removed.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestLinesNormalize(t *testing.T) {
	raw := domain.Lines{
		line("a", 1, 10),
		line("", 1, 10),
		line("b", 0, 10),
		line("a", 2, 10),
		line("c", -3, 10),
	}

	got := raw.Normalize()
	want := domain.Lines{line("a", 3, 10)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected normalized lines (-want +got):\n%s", diff)
	}
}

func TestLinesValidate(t *testing.T) {
	lines := domain.Lines{line("a", 1, 10), line("a", 0, -1)}

	errs := lines.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", errs)
	}
}

func TestRemoteCartLines(t *testing.T) {
	cart := domain.RemoteCart{
		ID: "cart_1",
		Items: []domain.RemoteLineItem{
			{ID: "li_1", ProductID: "a", VariantID: "va", Title: "A", Quantity: 2, UnitPriceMinor: 100},
			{ID: "li_2", ProductID: "b", VariantID: "vb", Title: "B", Quantity: 1, UnitPriceMinor: 50},
			{ID: "li_3", ProductID: "a", VariantID: "va", Title: "A", Quantity: 1, UnitPriceMinor: 100},
		},
	}

	lines := cart.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ProductID != "a" || lines[0].Quantity != 3 || lines[0].VariantID != "va" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}

	item, ok := cart.FindItem("b")
	if !ok || item.ID != "li_2" {
		t.Fatalf("expected to find li_2, got %+v", item)
	}
}

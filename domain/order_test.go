package domain

import "testing"

func TestCalculateOrderEmptyList(t *testing.T) {
	if got := CalculateOrder(nil, -1, 0); got != OrderStep {
		t.Fatalf("expected %d for empty list, got %d", OrderStep, got)
	}
	if got := CalculateOrder(nil, -1, 5); got != OrderStep {
		t.Fatalf("expected %d for out-of-range destination, got %d", OrderStep, got)
	}
}

func TestCalculateOrderFirstPosition(t *testing.T) {
	orders := []int{1000, 2000, 3000}
	if got := CalculateOrder(orders, 2, 0); got != 500 {
		t.Fatalf("expected half of first order, got %d", got)
	}
	if got := CalculateOrder(orders, -1, -1); got != 500 {
		t.Fatalf("expected negative destination clamped to front, got %d", got)
	}
}

func TestCalculateOrderAppend(t *testing.T) {
	orders := []int{1000, 2000, 3000}
	if got := CalculateOrder(orders, 0, 3); got != 4000 {
		t.Fatalf("expected last+step, got %d", got)
	}
	// A new item targeting the slot after the last sibling also appends.
	if got := CalculateOrder(orders, -1, 3); got != 4000 {
		t.Fatalf("expected last+step for incoming item, got %d", got)
	}
}

func TestCalculateOrderMidpoint(t *testing.T) {
	orders := []int{1000, 2000, 3000}
	if got := CalculateOrder(orders, 0, 1); got != 1500 {
		t.Fatalf("expected midpoint of 1000 and 2000, got %d", got)
	}
	if got := CalculateOrder(orders, -1, 2); got != 2500 {
		t.Fatalf("expected midpoint of 2000 and 3000, got %d", got)
	}
}

func TestCalculateOrderStaysBetweenNeighbours(t *testing.T) {
	orders := []int{10, 20, 1000, 1001, 50000}
	for to := 1; to < len(orders); to++ {
		got := CalculateOrder(orders, -1, to)
		prev, next := orders[to-1], orders[to]
		if got < prev || got > next {
			t.Fatalf("order %d for destination %d escapes [%d, %d]", got, to, prev, next)
		}
	}
}

func TestCalculateOrderNarrowGapCollapses(t *testing.T) {
	// Adjacent values leave no integer between them; the result degenerates
	// to the lower bound, which batch renumbering later repairs.
	if got := CalculateOrder([]int{1000, 1001}, -1, 1); got != 1000 {
		t.Fatalf("expected collapse to lower bound, got %d", got)
	}
}

func TestNextOrder(t *testing.T) {
	if got := NextOrder(nil); got != OrderStep {
		t.Fatalf("expected %d for empty list, got %d", OrderStep, got)
	}
	if got := NextOrder([]int{100, 2500}); got != 3500 {
		t.Fatalf("expected last+step, got %d", got)
	}
}

func TestSpacedOrder(t *testing.T) {
	for i, want := range []int{1000, 2000, 3000} {
		if got := SpacedOrder(i); got != want {
			t.Fatalf("expected %d at index %d, got %d", want, i, got)
		}
	}
}

func TestOrderExtraction(t *testing.T) {
	tasks := []Task{{ID: "a", Order: 5}, {ID: "b", Order: 9}}
	if got := TaskOrders(tasks); len(got) != 2 || got[0] != 5 || got[1] != 9 {
		t.Fatalf("unexpected task orders: %v", got)
	}
	columns := []Column{{ID: "c", Order: 1000}}
	if got := ColumnOrders(columns); len(got) != 1 || got[0] != 1000 {
		t.Fatalf("unexpected column orders: %v", got)
	}
}

func TestCalculateOrderNegativeFirstOrderFloors(t *testing.T) {
	// Halving rounds toward negative infinity; truncation would place the
	// new head above a negative first sibling.
	if got := CalculateOrder([]int{-3, 1000}, -1, 0); got != -2 {
		t.Fatalf("expected floor(-3/2) = -2, got %d", got)
	}
	if got := CalculateOrder([]int{-1, 1000}, -1, 0); got != -1 {
		t.Fatalf("expected floor(-1/2) = -1, got %d", got)
	}
	if got := CalculateOrder([]int{-4, 1000}, -1, 0); got != -2 {
		t.Fatalf("expected -4/2 = -2, got %d", got)
	}
}

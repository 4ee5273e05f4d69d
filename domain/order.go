package domain

// OrderStep is the gap left between newly created siblings so later
// insertions can take the midpoint without renumbering the whole list.
const OrderStep = 1000

// CalculateOrder computes the position value for an item placed at toIndex
// within orders, the sibling order values sorted ascending. fromIndex is the
// item's current index, or -1 when the item is new to this list. toIndex is
// the destination index in the post-removal list.
//
// Repeated insertions into the same narrow gap collapse it to zero under
// integer rounding; the batch reorder paths renumber with fresh spacing,
// which is the mitigation.
func CalculateOrder(orders []int, fromIndex, toIndex int) int {
	if toIndex <= 0 {
		if len(orders) == 0 {
			return OrderStep
		}
		return halve(orders[0])
	}

	if toIndex >= len(orders) || (fromIndex == -1 && toIndex == len(orders)) {
		if len(orders) == 0 {
			return OrderStep
		}
		return orders[len(orders)-1] + OrderStep
	}

	prev := orders[toIndex-1]
	next := orders[toIndex]
	return prev + halve(next-prev)
}

// halve divides by two rounding toward negative infinity, so negative order
// values keep moving down instead of sticking at zero.
func halve(v int) int {
	if v < 0 && v%2 != 0 {
		return v/2 - 1
	}
	return v / 2
}

// NextOrder returns the order value for an item appended after the given
// siblings.
func NextOrder(orders []int) int {
	if len(orders) == 0 {
		return OrderStep
	}
	return orders[len(orders)-1] + OrderStep
}

// SpacedOrder returns the order assigned to position index during a full
// renumbering pass: 1000, 2000, 3000, ...
func SpacedOrder(index int) int {
	return (index + 1) * OrderStep
}

// TaskOrders extracts the order values of tasks already sorted ascending.
func TaskOrders(tasks []Task) []int {
	orders := make([]int, len(tasks))
	for i, t := range tasks {
		orders[i] = t.Order
	}
	return orders
}

// ColumnOrders extracts the order values of columns already sorted ascending.
func ColumnOrders(columns []Column) []int {
	orders := make([]int, len(columns))
	for i, c := range columns {
		orders[i] = c.Order
	}
	return orders
}

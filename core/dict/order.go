package dict

import "fmt"

// Order selects the sort key for iteration.
type Order string

const (
	// OrderID sorts by insertion order. The autoincrement id grows
	// monotonically, so newly assigned keys always come last.
	OrderID Order = "id"
	// OrderKey sorts lexically by key.
	OrderKey Order = "key"
	// OrderExpire sorts by expiry deadline.
	OrderExpire Order = "expire"
)

// column maps the order to its backing column. The empty Order defaults to
// OrderID.
func (o Order) column() (string, error) {
	switch o {
	case OrderID, OrderKey, OrderExpire:
		return string(o), nil
	case "":
		return string(OrderID), nil
	}
	return "", fmt.Errorf("dict: unknown order %q", o)
}

// Direction selects the traversal direction of a cursor.
type Direction string

const (
	// Asc traverses in ascending order. This is the default.
	Asc Direction = "ASC"
	// Desc traverses in strictly descending order.
	Desc Direction = "DESC"
)

func (d Direction) keyword() (string, error) {
	switch d {
	case Asc, "":
		return string(Asc), nil
	case Desc:
		return string(Desc), nil
	}
	return "", fmt.Errorf("dict: unknown direction %q", d)
}

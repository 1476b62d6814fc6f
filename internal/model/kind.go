package model

import (
	"fmt"
	"strings"
)

// Kind - тип операции: доход или расход.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ParseKind разбирает тип операции без учета регистра.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

package domain

// Identity описывает, кто выполняет операцию с корзиной.
// Нулевое значение — гость.
type Identity struct {
	CustomerID string
	// Token — bearer-токен для commerce API; может быть пустым даже у авторизованного покупателя.
	Token string
}

// Guest возвращает гостевую идентичность.
func Guest() Identity {
	return Identity{}
}

// Authenticated возвращает идентичность авторизованного покупателя.
func Authenticated(customerID, token string) Identity {
	return Identity{CustomerID: customerID, Token: token}
}

// IsGuest сообщает, что покупатель не авторизован.
func (i Identity) IsGuest() bool {
	return i.CustomerID == ""
}

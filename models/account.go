package models

// Account — учётная запись форума из конфигурации.
// Слот и дни активности не хранятся: они каждый раз вычисляются из имени.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Valid сообщает, заполнены ли обязательные поля.
func (a Account) Valid() bool {
	return a.Username != "" && a.Password != ""
}

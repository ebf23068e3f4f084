package usecase

// Translator resolves localized message keys.
type Translator interface {
	T(key string, args ...interface{}) string
}

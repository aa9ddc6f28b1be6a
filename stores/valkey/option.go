package valkey

type Option func(*Store)

func WithName(name string) Option {
	return func(store *Store) {
		store.name = name
	}
}

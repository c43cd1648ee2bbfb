package try

// things with a method `Fatal`: *testing.T, *log.Logger, ...
type Fataler interface {
	Fatal(...any)
}

// Either wraps a (T, error) pair.
//
// It is "ok" when the error is nil, and only then the T value is valid.
type Either[T any] interface {

	// Get unwraps to the plain (value, error) pair.
	Get() (T, error)

	// OrFatal returns the value of an "ok" Either.
	//
	// Otherwise it calls ftl.Fatal(err). When ftl has a Helper()
	// method, as *testing.T does, that is called first.
	OrFatal(ftl Fataler) T

	// OrDefault returns the value, or d when the Either is not "ok".
	OrDefault(d T) T
}

// To wraps a function call returning (T, error) into an Either.
func To[T any](value T, err error) Either[T] {
	if err != nil {
		return ng[T]{err}
	}
	return ok[T]{value}
}

type ok[T any] struct {
	value T
}

func (o ok[T]) Get() (T, error) {
	return o.value, nil
}

func (o ok[T]) OrFatal(Fataler) T {
	return o.value
}

func (o ok[T]) OrDefault(T) T {
	return o.value
}

type ng[T any] struct {
	err error
}

func (n ng[T]) Get() (T, error) {
	return *new(T), n.err
}

func (n ng[T]) OrFatal(ftl Fataler) T {
	if hlp, isHelper := ftl.(interface{ Helper() }); isHelper {
		hlp.Helper()
	}
	ftl.Fatal(n.err)
	return *new(T)
}

func (n ng[T]) OrDefault(d T) T {
	return d
}

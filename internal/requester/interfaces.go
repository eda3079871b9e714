package requester

// Parser consumes the body of a successful (200) response.
type Parser interface {
	ParseVars(body string)
}

// ParserFunc adapts a plain function to Parser.
type ParserFunc func(body string)

func (f ParserFunc) ParseVars(body string) { f(body) }

// Notifier informs the user that a request could not be started.
type Notifier interface {
	Alert(msg string)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

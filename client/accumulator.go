package client

import "chatrelay/domain"

// accumulator owns the single open assistant message of one exchange. Only
// the goroutine running Send touches it.
type accumulator struct {
	onUpdate func(Update)
	message  *domain.Message
	loading  bool
}

func newAccumulator(onUpdate func(Update)) *accumulator {
	return &accumulator{onUpdate: onUpdate, loading: true}
}

func (a *accumulator) open() *domain.Message {
	if a.message == nil {
		msg := domain.NewMessage(domain.RoleAssistant, "")
		a.message = &msg
	}
	return a.message
}

func (a *accumulator) append(delta string) {
	msg := a.open()
	msg.Content += delta
	a.loading = false
	a.emit(false)
}

func (a *accumulator) install(msg domain.Message) {
	a.message = &msg
}

// fail replaces whatever was received with the error text.
func (a *accumulator) fail(err error) {
	msg := a.open()
	msg.Content = "Error: " + err.Error()
}

func (a *accumulator) seal() domain.Message {
	msg := *a.open()
	a.loading = false
	a.emit(true)
	return msg
}

func (a *accumulator) emit(done bool) {
	if a.onUpdate == nil {
		return
	}
	update := Update{Loading: a.loading, Done: done}
	if a.message != nil {
		update.Message = *a.message
	}
	a.onUpdate(update)
}

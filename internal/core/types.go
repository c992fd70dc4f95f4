package core

// Status описывает итог выполнения команды.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Header — пара имя/значение заголовка ответа в порядке из конфига.
type Header struct {
	Name  string
	Value string
}

// EndpointDefinition описывает один сконфигурированный маршрут.
type EndpointDefinition struct {
	Name        string
	Command     string
	Args        []string
	Description string
	Headers     []Header
}

// CommandResult — нормализованный результат запуска команды.
// Output заполнен только при StatusSuccess, Error — только при StatusError.
type CommandResult struct {
	Status Status
	Output string
	Error  string
}

// Success сообщает, завершилась ли команда с кодом 0.
func (r CommandResult) Success() bool { return r.Status == StatusSuccess }

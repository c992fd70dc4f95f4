package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"cmdgate/internal/core"
)

// EndpointsPath — зарезервированный маршрут со списком всех маршрутов.
// Перекрывает маршрут с тем же ключом из конфига.
const EndpointsPath = "/endpoints"

const defaultContentType = "application/json"

// WireResponse — ответ перед сериализацией в сокет.
type WireResponse struct {
	StatusCode int
	Headers    []core.Header
	Body       string
}

type commandBody struct {
	Status string  `json:"status"`
	Output string  `json:"output"`
	Error  *string `json:"error"`
}

// BuildCommandResponse строит ответ на выполненную команду. Код всегда 200:
// успех или ошибка команды передаются только полем status в теле.
func BuildCommandResponse(res core.CommandResult, def core.EndpointDefinition) WireResponse {
	contentType := defaultContentType
	headers := make([]core.Header, 0, len(def.Headers)+1)
	for _, h := range def.Headers {
		if strings.EqualFold(h.Name, "content-type") {
			contentType = h.Value
			continue
		}
		headers = append(headers, h)
	}
	headers = append(headers, core.Header{Name: "Content-Type", Value: contentType})

	body := commandBody{Status: string(res.Status), Output: res.Output}
	if !res.Success() {
		msg := res.Error
		body.Output = ""
		body.Error = &msg
	}
	return WireResponse{StatusCode: 200, Headers: headers, Body: encodeJSON(body)}
}

// BuildEndpointsResponse отдает карту маршрут -> описание.
func BuildEndpointsResponse(endpoints map[string]string) WireResponse {
	if endpoints == nil {
		endpoints = map[string]string{}
	}
	return jsonResponse(200, endpoints)
}

// BuildNotFound — ответ на неизвестный маршрут.
func BuildNotFound() WireResponse {
	return jsonResponse(404, map[string]string{
		"status":  "error",
		"message": "Endpoint not found",
		"note":    "Use " + EndpointsPath + " to see available endpoints",
	})
}

// BuildInvalidRequest — ответ на пустой или неразборчивый запрос.
func BuildInvalidRequest() WireResponse {
	return jsonResponse(400, map[string]string{
		"status":  "error",
		"message": "Invalid request",
	})
}

// BuildInternalError — ответ, если обработчик соединения упал.
func BuildInternalError() WireResponse {
	return jsonResponse(500, map[string]string{
		"status":  "error",
		"message": "Internal error",
	})
}

func jsonResponse(code int, v interface{}) WireResponse {
	return WireResponse{
		StatusCode: code,
		Headers:    []core.Header{{Name: "Content-Type", Value: defaultContentType}},
		Body:       encodeJSON(v),
	}
}

func encodeJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func reasonPhrase(code int) string {
	switch code {
	case 200:
		return "OK"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// Bytes сериализует ответ: status line, заголовки, Content-Length,
// Connection: close, пустая строка, тело.
func (r WireResponse) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.StatusCode))
	b.WriteByte(' ')
	b.WriteString(reasonPhrase(r.StatusCode))
	b.WriteString("\r\n")
	for _, h := range r.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\n")
	b.WriteString("Connection: close\r\n\r\n")
	b.WriteString(r.Body)
	return b.Bytes()
}

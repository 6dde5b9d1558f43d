package proxy

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"llm-gateway/upstream"
)

// Mensagens de erro visíveis ao cliente. Mudar qualquer uma quebra o frontend.
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgMissingAction    = "Missing action parameter"
	MsgMissingFields    = "Missing input or question"
	MsgMissingAssess    = "Missing assessmentData"
	MsgInvalidAction    = "Invalid action"
	MsgInvalidBody      = "Invalid request body"
	MsgNotConfigured    = "API not configured"
	MsgUpstream         = "AI service error"
	MsgInternal         = "Internal server error"
)

const (
	ActionValidate = "validate"
	ActionInsight  = "insight"

	maxInputLen    = 500
	maxQuestionLen = 200
)

// RequestError é uma falha de validação do payload; Message vai como está
// para o cliente.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(msg string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: msg}
}

// Action é o payload já validado. As variantes são ValidateAction e
// InsightAction; cada uma sabe montar o próprio prompt.
type Action interface {
	Name() string
	Prompt() upstream.Prompt
	isAction()
}

// ValidateAction pede ao modelo para classificar uma resposta do questionário.
// Campos já saneados.
type ValidateAction struct {
	Input    string
	Question string
}

func (ValidateAction) Name() string { return ActionValidate }
func (ValidateAction) isAction()    {}

// InsightAction pede uma recomendação curta a partir do resultado do questionário.
type InsightAction struct {
	Assessment Assessment
}

func (InsightAction) Name() string { return ActionInsight }
func (InsightAction) isAction()    {}

// Assessment guarda os campos como vieram do cliente. Nada é validado:
// ausente vira texto vazio no prompt.
type Assessment struct {
	Score            json.RawMessage `json:"score"`
	Tier             json.RawMessage `json:"tier"`
	ContextSummary   json.RawMessage `json:"contextSummary"`
	HasCustomAnswers json.RawMessage `json:"hasCustomAnswers"`
}

func (a Assessment) CustomAnswers() bool { return !falsy(a.HasCustomAnswers) }

type payload struct {
	Action         json.RawMessage `json:"action"`
	Input          json.RawMessage `json:"input"`
	Question       json.RawMessage `json:"question"`
	AssessmentData json.RawMessage `json:"assessmentData"`
}

// ParseAction valida o corpo e devolve a variante correspondente à tag.
// Todo erro retornado é *RequestError.
func ParseAction(body []byte) (Action, error) {
	var p payload
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, badRequest(MsgInvalidBody)
		}
	}

	if falsy(p.Action) {
		return nil, badRequest(MsgMissingAction)
	}
	var tag string
	if err := json.Unmarshal(p.Action, &tag); err != nil {
		return nil, badRequest(MsgInvalidAction)
	}

	switch tag {
	case ActionValidate:
		if falsy(p.Input) || falsy(p.Question) {
			return nil, badRequest(MsgMissingFields)
		}
		return ValidateAction{
			Input:    sanitize(coerce(p.Input), maxInputLen),
			Question: sanitize(coerce(p.Question), maxQuestionLen),
		}, nil
	case ActionInsight:
		if falsy(p.AssessmentData) {
			return nil, badRequest(MsgMissingAssess)
		}
		var a Assessment
		// objeto malformado (ex: string) fica com todos os campos vazios
		_ = json.Unmarshal(p.AssessmentData, &a)
		return InsightAction{Assessment: a}, nil
	default:
		return nil, badRequest(MsgInvalidAction)
	}
}

// falsy segue a regra de "ausente" do frontend: campo inexistente, null,
// "", false e 0 contam como não enviados.
func falsy(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	switch v {
	case "", "null", "false", `""`:
		return true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == 0 {
		return true
	}
	return false
}

// coerce converte qualquer valor JSON em texto: strings perdem as aspas,
// o resto fica como veio.
// Ausente e null viram "".
func coerce(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return v
}

// sanitize corta em max runas e tira espaços das pontas.
func sanitize(s string, max int) string {
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return strings.TrimSpace(s)
}

package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	gpvalidator "github.com/go-playground/validator/v10"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/pkg/middleware"
)

var (
	validate *gpvalidator.Validate
	once     sync.Once
)

func validator() *gpvalidator.Validate {
	once.Do(func() {
		validate = gpvalidator.New()
		// Usa o nome do campo JSON nas mensagens.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Decode lê o corpo JSON em dst e aplica as tags `validate`.
func Decode(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return Validate(dst)
}

// Validate aplica as tags `validate` da struct.
func Validate(dst interface{}) error {
	err := validator().Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs gpvalidator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: regra %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: regra %s", fe.Field(), fe.Tag()))
	}
	return apperror.NewValidationError(strings.Join(msgs, "; "))
}

// Actor extrai a identidade verificada colocada no contexto pelo middleware de autenticação.
func Actor(r *http.Request) (domain.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return domain.Actor{}, apperror.NewUnauthorizedError("Autorização necessária. Token não processado.")
	}
	return actor, nil
}

// JSON processa erros de serviço e envia respostas padronizadas ao cliente.
func JSON(w http.ResponseWriter, r *http.Request, log logger.Logger, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				log.Error("Falha ao codificar JSON de resposta", jsonErr)
			}
		}
		return
	}

	status, category, _ := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		})
	}
	middleware.WriteError(w, err)
}

// QueryInt lê um inteiro opcional da query string.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidationError(fmt.Sprintf("o parâmetro %s deve ser inteiro.", key))
	}
	return n, nil
}

package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"409"`
	Category string `json:"category" example:"LOCATION_OCCUPIED"`
	Message  string `json:"message" example:"Localização ocupada: a localização já pertence a outro produto."`
}

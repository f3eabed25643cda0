package errors

import "fmt"

// GeolocationCode mirrors the Geolocation API error codes reported by devices.
type GeolocationCode int

const (
	GeoPermissionDenied    GeolocationCode = 1
	GeoPositionUnavailable GeolocationCode = 2
	GeoTimeout             GeolocationCode = 3
)

type GeolocationError struct {
	Code    GeolocationCode `json:"code"`
	Message string          `json:"message"`
	Hint    string          `json:"hint"`
}

func (e *GeolocationError) Error() string {
	return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
}

// NewGeolocationError attaches the remediation hint for a device error code.
func NewGeolocationError(code GeolocationCode) *GeolocationError {
	switch code {
	case GeoPermissionDenied:
		return &GeolocationError{
			Code:    code,
			Message: "Permissão de localização negada.",
			Hint:    "Habilite o acesso à localização nas configurações do navegador ou do aparelho.",
		}
	case GeoPositionUnavailable:
		return &GeolocationError{
			Code:    code,
			Message: "Localização indisponível.",
			Hint:    "Verifique se o GPS está ligado e tente em um local aberto.",
		}
	case GeoTimeout:
		return &GeolocationError{
			Code:    code,
			Message: "Tempo esgotado ao obter a localização.",
			Hint:    "Tente novamente em alguns segundos.",
		}
	}
	return &GeolocationError{
		Code:    code,
		Message: "Erro desconhecido de localização.",
		Hint:    "Tente novamente ou informe o endereço manualmente.",
	}
}

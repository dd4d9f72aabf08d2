package api

import (
	"github.com/gin-gonic/gin"
)

type errorCode struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

var (
	errorInternalServer    = errorCode{1000, "Error interno del servidor"}
	errorInvalidParameters = errorCode{1001, "Parámetros de petición inválidos"}
	errorCannotParseFile   = errorCode{1002, "No se pudo leer el archivo"}
	errorNoFile            = errorCode{1003, "No se ha enviado ningún archivo"}
	errorUnsupportedFile   = errorCode{1004, "Solo se permiten archivos Excel (.xlsx, .xls) o CSV (.csv)"}
	errorFileTooLarge      = errorCode{1005, "El archivo supera el tamaño máximo permitido"}
	errorEmptyFile         = errorCode{1006, "El archivo no contiene datos válidos"}

	errorStopNotFound      = errorCode{2000, "Marquesina no encontrada"}
	errorStopExists        = errorCode{2001, "La marquesina ya existe"}
	errorStopNotRegistered = errorCode{2002, "La marquesina no está dada de alta en el catálogo"}
	errorRecordNotFound    = errorCode{2100, "No se encontraron registros para esta marquesina"}
	errorSummaryNotFound   = errorCode{2101, "No hay datos para los filtros seleccionados"}
	errorSensorDayMissing  = errorCode{2200, "No hay datos de marquesina disponibles"}
	errorAlertNotFound     = errorCode{2300, "Alerta no encontrada"}
	errorReportNotFound    = errorCode{2400, "Informe no encontrado"}
	errorExportRunNotFound = errorCode{2500, "Ejecución no encontrada"}
	errorUnknownDataset    = errorCode{2501, "Dataset desconocido"}
)

type errorResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
}

// abortWithEncoding replies with the canonical error envelope. Underlying
// errors are attached to the context so the logger middleware can report
// them without leaking internals to the client.
func abortWithEncoding(c *gin.Context, status int, code errorCode, errs ...error) {
	for _, err := range errs {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Success: false,
		Code:    code.Code,
		Error:   code.Message,
	})
}

package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Spanish translations for CLI messages.
	l10n.Register("es", l10n.LexiconMap{
		// Root command
		"Export vertical clips from a live compositor":         "Exporta clips verticales desde un compositor en vivo",
		"YAML configuration file":                              "Archivo de configuración YAML",
		"Log level (debug, info, warn, error)":                 "Nivel de log (debug, info, warn, error)",
		"Suppress all log output":                              "Suprimir toda la salida de log",
		"Path to ffmpeg (falls back to FFMPEG_PATH, then PATH)": "Ruta a ffmpeg (si no, FFMPEG_PATH y luego PATH)",
		"Show version information":                             "Mostrar la versión",
		"clipforge version %s":                                 "clipforge versión %s",

		// Shared flags
		"Clip start in seconds":             "Inicio del clip en segundos",
		"Clip end in seconds":               "Fin del clip en segundos",
		"Output file path":                  "Ruta del archivo de salida",
		"Do not print progress":             "No mostrar el progreso",
		"Overwrite an existing output file": "Sobrescribir un archivo de salida existente",
		"Base URL of a conversion service":  "URL base de un servicio de conversión",

		// Export command
		"Export a clip from a compositor page":                  "Exportar un clip desde una página del compositor",
		"auto, capture or transcode":                            "auto, capture o transcode",
		"Convert the recording to MP4: none, local or remote":   "Convertir la grabación a MP4: none, local o remote",
		"Run browser in non-headless mode":                      "Ejecutar el navegador con ventana",
		"a compositor page URL is required":                     "se requiere la URL de la página del compositor",
		"Path to Chrome executable (falls back to CHROME_PATH env, then system default)": "Ruta al ejecutable de Chrome (si no, CHROME_PATH y luego el predeterminado del sistema)",

		// Convert, extract and serve commands
		"Convert a WebM recording to MP4":                         "Convertir una grabación WebM a MP4",
		"local or remote":                                         "local o remote",
		"an input file is required":                               "se requiere un archivo de entrada",
		"Cut a vertical clip from a source video without overlay": "Cortar un clip vertical de un vídeo sin superposición",
		"a source URL or path is required":                        "se requiere una URL o ruta de origen",
		"Run the WebM to MP4 conversion service":                  "Ejecutar el servicio de conversión de WebM a MP4",
		"Listen address":                                          "Dirección de escucha",

		// Summary
		"Strategy:  %s":                             "Estrategia: %s",
		"           (fell back from realtime capture)": "            (sin captura en tiempo real)",
		"Format:    %s":                             "Formato:    %s",
		"Size:      %.2f MB":                        "Tamaño:     %.2f MB",
		"Duration:  %d ms":                          "Duración:   %d ms",
		"Frame:     %dx%d":                          "Cuadro:     %dx%d",
		"Chunks:    %d (stopped by %s, audio %v)":   "Fragmentos: %d (detenido por %s, audio %v)",
		"Elapsed:   %s":                             "Tiempo:     %s",
	})
}

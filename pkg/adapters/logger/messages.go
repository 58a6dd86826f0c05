package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("es", l10n.LexiconMap{
		// Export level messages (info)
		"Exporting clip %s":                   "Exportando clip %s",
		"Extracting clip %s":                  "Extrayendo clip %s",
		"Export completed: %s, %.2f MB in %s": "Exportación completada: %s, %.2f MB en %s",
		"Output saved to %s":                  "Salida guardada en %s",
		"Converted %.2f MB -> %.2f MB (%s)":   "Convertido %.2f MB -> %.2f MB (%s)",
		"Clip recorded without audio":         "Clip grabado sin audio",
		"Interrupted, shutting down...":       "Interrumpido, cerrando...",
		"Loading config from %s":              "Cargando configuración desde %s",
		"Realtime capture unavailable (%v), falling back to transcode": "Captura en tiempo real no disponible (%v), usando transcodificación",

		// Export failures
		"Failed to record clip: %s":    "Error al grabar el clip: %s",
		"Failed to transcode clip: %s": "Error al transcodificar el clip: %s",
		"Failed to convert clip: %s":   "Error al convertir el clip: %s",
		"Failed to extract clip: %s":   "Error al extraer el clip: %s",
		"Failed to write output: %s":   "Error al escribir la salida: %s",

		// Recorder
		"Recording cancelled":                                  "Grabación cancelada",
		"Recording failed: %v":                                 "La grabación falló: %v",
		"Audio capture unavailable, recording video only: %v":  "Audio no disponible, grabando solo vídeo: %v",
		"Media has no audio track, recording video only":       "El medio no tiene pista de audio, grabando solo vídeo",
		"Cannot read audio output state: %v":                   "No se puede leer el estado del audio: %v",
		"Cannot mute media: %v":                                "No se puede silenciar el medio: %v",
		"Cannot restore audio output: %v":                      "No se puede restaurar el audio: %v",
		"Pause failed: %v":                                     "La pausa falló: %v",

		// Engine and transcode jobs
		"Engine ready (ffmpeg %s)":           "Motor listo (ffmpeg %s)",
		"Engine load failed: %v":             "Error al cargar el motor: %v",
		"Converting %.2f MB %s to MP4":       "Convirtiendo %.2f MB %s a MP4",
		"MP4 ready: %.2f MB in %s":           "MP4 listo: %.2f MB en %s",
		"Transcoded %s: %.2f MB in %s":       "Transcodificado %s: %.2f MB en %s",
		"Cannot delete %s: %v":               "No se puede borrar %s: %v",
		"Cannot close %s job: %v":            "No se puede cerrar el trabajo %s: %v",
		"Remote conversion: %.2f MB -> %.2f MB": "Conversión remota: %.2f MB -> %.2f MB",

		// Browser compositor
		"Launching browser":               "Iniciando navegador",
		"Compositor page opened: %s":      "Página del compositor abierta: %s",
		"Failed to read media source: %v": "Error al leer la fuente del medio: %v",
		"Dropped page event: %v":          "Evento de página descartado: %v",
		"Browser closed":                  "Navegador cerrado",

		// Conversion service
		"Conversion service listening on %s":  "Servicio de conversión escuchando en %s",
		"Shutting down conversion service":    "Deteniendo el servicio de conversión",
		"Received WebM file: %s (%.2f MB)":    "Archivo WebM recibido: %s (%.2f MB)",
		"Conversion complete in %s: %.2f MB":  "Conversión completada en %s: %.2f MB",
		"Conversion failed: %v":               "La conversión falló: %v",
		"Failed to read upload: %v":           "Error al leer la subida: %v",
		"Failed to read upload %s: %v":        "Error al leer la subida %s: %v",
	})
}

package api

import "net/http"

// StaticHandler serves the files under dir, with index.html for directories.
func StaticHandler(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

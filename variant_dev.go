//go:build !prod

package mirrorplot

import (
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

// Dev builds serve the web UI straight from the source tree so edits show up
// on reload.
func webuiFS() fs.FS {
	return os.DirFS("webui")
}

func openBrowser(url string) {
	logrus.WithField("url", url).Debug("not opening browser in dev build")
}

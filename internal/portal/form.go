package portal

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/muurk/smartrelay/internal/configstore"
	"github.com/muurk/smartrelay/internal/wifi"
)

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 24em; margin: 1em auto; }
label { display: block; margin-top: .8em; }
input { width: 100%; box-sizing: border-box; }
.error { color: #b00; }
.status { color: #555; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Status}}<p class="status">{{.Status}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Saved}}
<p>Settings received. The controller is joining <b>{{.SSID}}</b>; this network will close once it succeeds.</p>
{{else}}
<form method="POST" action="/save">
<label>Network name<input name="ssid" maxlength="{{.SSIDSize}}" value="{{.SSID}}"></label>
<label>Password<input name="password" type="password" maxlength="{{.PasswordSize}}"></label>
<label>MQTT server<input name="server" maxlength="{{.ServerSize}}" value="{{.Server}}"></label>
<label>MQTT port<input name="port" maxlength="{{.PortSize}}" value="{{.Port}}"></label>
<p><input type="submit" value="Save"></p>
</form>
{{end}}
</body>
</html>
`))

type formPage struct {
	Title        string
	Status       string
	Error        string
	Saved        bool
	SSID         string
	Server       string
	Port         string
	SSIDSize     int
	PasswordSize int
	ServerSize   int
	PortSize     int
}

func newFormPage(title string, cfg configstore.ConnectionConfig) formPage {
	return formPage{
		Title:        title,
		Server:       cfg.Server,
		Port:         cfg.Port,
		SSIDSize:     wifi.MaxSSIDLen,
		PasswordSize: wifi.MaxPasswordLen,
		ServerSize:   configstore.ServerFieldSize,
		PortSize:     configstore.PortFieldSize,
	}
}

// parseSubmission reads and validates the posted form. Empty server and
// port fields are allowed and keep the current values.
func parseSubmission(r *http.Request) (Submission, error) {
	if err := r.ParseForm(); err != nil {
		return Submission{}, fmt.Errorf("malformed form: %w", err)
	}

	sub := Submission{
		Credentials: wifi.Credentials{
			SSID:     strings.TrimSpace(r.PostFormValue("ssid")),
			Password: r.PostFormValue("password"),
		},
		Server: strings.TrimSpace(r.PostFormValue("server")),
		Port:   strings.TrimSpace(r.PostFormValue("port")),
	}

	if err := sub.Credentials.Validate(); err != nil {
		return sub, err
	}
	if sub.Server != "" {
		if err := configstore.ValidateServer(sub.Server); err != nil {
			return sub, err
		}
	}
	if sub.Port != "" {
		if err := configstore.ValidatePort(sub.Port); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

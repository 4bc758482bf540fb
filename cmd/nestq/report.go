package main

import (
	"fmt"
	"io"
	"time"

	"github.com/casualjim/nestq"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
)

type report struct {
	nestq.Stats
	Written int64  `json:"written"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

func (r report) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	dropped := fmt.Sprint(r.Dropped)
	if r.Dropped > 0 {
		dropped = color.YellowString(dropped)
	}
	_, err := fmt.Fprintf(w, "%s published %s, delivered %s, dropped %s, wrote %s records to %s in %s\n",
		color.MagentaString(r.Topic+":"),
		color.GreenString("%d", r.Published),
		color.GreenString("%d", r.Delivered),
		dropped,
		color.CyanString("%d", r.Written),
		r.Output,
		r.Elapsed.Round(time.Millisecond),
	)
	if err != nil {
		return err
	}
	if r.Error != "" {
		_, err = fmt.Fprintln(w, color.RedString("error: %s", r.Error))
	}
	return err
}

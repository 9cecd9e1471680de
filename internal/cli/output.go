package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/frankli0324/go-centra"
)

// statusError reports a 4xx or 5xx response under --fail.
type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return "server responded " + e.status
}

func (o *options) printResponse(w io.Writer, resp *centra.Response) error {
	if o.include {
		printHead(w, resp)
	}

	if resp.Streaming() {
		defer resp.Close()
		for ev := range resp.Events() {
			switch ev.Kind {
			case centra.EventData:
				if _, err := w.Write(ev.Data); err != nil {
					return err
				}
			case centra.EventError:
				return ev.Err
			}
		}
	} else if o.get != "" {
		fmt.Fprintln(w, resp.Get(o.get).String())
	} else if _, err := w.Write(resp.Bytes()); err != nil {
		return err
	}

	if o.fail && resp.StatusCode >= 400 {
		return &statusError{resp.Status}
	}
	return nil
}

func printHead(w io.Writer, resp *centra.Response) {
	bold := color.New(color.Bold).SprintFunc()
	statusColor := color.New(color.FgGreen).SprintFunc()
	switch {
	case resp.StatusCode >= 500:
		statusColor = color.New(color.FgRed).SprintFunc()
	case resp.StatusCode >= 400:
		statusColor = color.New(color.FgYellow).SprintFunc()
	case resp.StatusCode >= 300:
		statusColor = color.New(color.FgCyan).SprintFunc()
	}

	fmt.Fprintf(w, "%s %s\n", resp.Proto, statusColor(resp.Status))
	names := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "%s: %s\n", bold(k), v)
		}
	}
	fmt.Fprintln(w)
}

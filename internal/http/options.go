package http

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// applyOption applies one [Request.Option]. Recognised names:
//
//	protocol, host, hostname, port, path, method, headers, setHost,
//	localAddress, servername, insecureSkipVerify, rejectUnauthorized,
//	reuseAddr, recvBuffer, sendBuffer
func (r *PreparedRequest) applyOption(name string, v interface{}) error {
	switch name {
	case "protocol":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		r.U.Scheme = strings.TrimSuffix(strings.ToLower(s), ":")
	case "host":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		if _, _, err := net.SplitHostPort(s); err == nil {
			r.U.Host = s
		} else {
			r.U.Host = joinHostPort(s, r.U.Port())
		}
	case "hostname":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		r.U.Host = joinHostPort(s, r.U.Port())
	case "port":
		var port string
		switch p := v.(type) {
		case int:
			port = strconv.Itoa(p)
		case string:
			port = p
		default:
			return badOption(name, "int or string", v)
		}
		r.U.Host = joinHostPort(r.U.Hostname(), port)
	case "path":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		p, q, _ := strings.Cut(s, "?")
		r.U.Path, r.U.RawPath, r.U.RawQuery = p, "", q
	case "method":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		r.Method = s
	case "headers":
		h := http.Header{}
		switch hv := v.(type) {
		case map[string]string:
			for k, s := range hv {
				h[strings.ToLower(k)] = []string{s}
			}
		case http.Header:
			for k, s := range hv {
				h[strings.ToLower(k)] = append([]string(nil), s...)
			}
		default:
			return badOption(name, "map[string]string or http.Header", v)
		}
		r.Header = h
	case "setHost":
		b, err := optBool(name, v)
		if err != nil {
			return err
		}
		r.SetHost = b
	case "localAddress":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		r.Conn.LocalAddr = s
	case "servername":
		s, err := optString(name, v)
		if err != nil {
			return err
		}
		r.Conn.ServerName = s
	case "insecureSkipVerify":
		b, err := optBool(name, v)
		if err != nil {
			return err
		}
		r.Conn.InsecureSkipVerify = b
	case "rejectUnauthorized":
		b, err := optBool(name, v)
		if err != nil {
			return err
		}
		r.Conn.InsecureSkipVerify = !b
	case "reuseAddr":
		b, err := optBool(name, v)
		if err != nil {
			return err
		}
		r.Conn.ReuseAddr = b
	case "recvBuffer", "sendBuffer":
		n, ok := v.(int)
		if !ok || n < 0 {
			return badOption(name, "non-negative int", v)
		}
		if name == "recvBuffer" {
			r.Conn.RecvBuffer = n
		} else {
			r.Conn.SendBuffer = n
		}
	default:
		return fmt.Errorf("%w: unknown name %q", ErrBadOption, name)
	}
	return nil
}

func optString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", badOption(name, "string", v)
	}
	return s, nil
}

func optBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, badOption(name, "bool", v)
	}
	return b, nil
}

func badOption(name, want string, got interface{}) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrBadOption, name, want, got)
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

package model

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// TPOSConfig is the active TPOS credential row.
type TPOSConfig struct {
	BaseURL     string `json:"base_url"`
	BearerToken string `json:"bearer_token"`
}

type PrinterSettings struct {
	Name     string `json:"name"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Codepage int    `json:"codepage"`
}

var ErrPrinterNotConfigured = errors.New("printer is not configured")

func (p PrinterSettings) Addr() (string, error) {
	if p.IP == "" || p.Port <= 0 || p.Port > 65535 {
		return "", fmt.Errorf("%w: ip=%q port=%d", ErrPrinterNotConfigured, p.IP, p.Port)
	}
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port)), nil
}

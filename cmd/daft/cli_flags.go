package main

import (
	"fmt"
	"strconv"
	"strings"
)

// PortsFlag is a cmd type that collects additional local ports to forward,
// either repeated or comma-separated.
type PortsFlag []int

// String returns the string representation of the PortsFlag.
func (p *PortsFlag) String() string {
	parts := make([]string, 0, len(*p))
	for _, port := range *p {
		parts = append(parts, strconv.Itoa(port))
	}

	return strings.Join(parts, ",")
}

// Set parses the input string and appends the ports using the flag.Value
// interface.
func (p *PortsFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		port, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", part, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
		*p = append(*p, port)
	}

	return nil
}

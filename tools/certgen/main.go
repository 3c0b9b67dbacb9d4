// Package main writes development TLS material for the console into a
// directory: a CA, a server certificate for TLS_CERT/TLS_KEY and, when asked,
// a client certificate for API_CERT/API_KEY. An existing CA in the directory
// is reused.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/atinyakov/CatalogAdmin/internal/certgen"
)

type options struct {
	dir      string
	hosts    string
	client   string
	validity time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.dir, "dir", "certs", "output directory")
	flag.StringVar(&o.hosts, "hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.StringVar(&o.client, "client", "", "common name of a client certificate to issue (optional)")
	flag.DurationVar(&o.validity, "validity", 365*24*time.Hour, "validity of issued certificates")
	flag.Parse()

	if err := generate(o, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(o options, out io.Writer) error {
	ok := color.New(color.FgGreen)

	ca, err := certgen.LoadCACredentials(filepath.Join(o.dir, "ca.crt"), filepath.Join(o.dir, "ca.key"))
	switch {
	case err == nil:
		fmt.Fprintf(out, "Reusing CA in %s\n", o.dir)
	case errors.Is(err, os.ErrNotExist):
		if ca, err = certgen.NewCA("Catalog Admin Dev CA", 10*365*24*time.Hour); err != nil {
			return err
		}
		if err := certgen.WriteFiles(o.dir, "ca", ca); err != nil {
			return err
		}
		ok.Fprintf(out, "Created %s\n", filepath.Join(o.dir, "ca.crt"))
	default:
		return err
	}

	hosts := splitHosts(o.hosts)
	server, err := certgen.NewServerCertificate(hosts, ca, o.validity)
	if err != nil {
		return err
	}
	if err := certgen.WriteFiles(o.dir, "server", server); err != nil {
		return err
	}
	ok.Fprintf(out, "Created %s for %s\n", filepath.Join(o.dir, "server.crt"), strings.Join(hosts, ", "))

	if o.client != "" {
		client, err := certgen.NewClientCertificate(o.client, ca, o.validity)
		if err != nil {
			return err
		}
		if err := certgen.WriteFiles(o.dir, "client", client); err != nil {
			return err
		}
		ok.Fprintf(out, "Created %s for %s\n", filepath.Join(o.dir, "client.crt"), o.client)
	}
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

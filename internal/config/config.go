// Package config resolves a replica's identity and membership list from the
// process invocation's positional arguments:
// <localIP> <localPort> <globalIP> <globalPort> [configPath], where
// configPath names a line-oriented file of peer "ip:port" entries. The core
// Replica never depends on this package directly — it is consumed only by
// cmd/ledger, which reads a Config and wires the resulting transport/peers
// into a Replica.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/senutpal/paxledger/internal/paxos"
)

// Config is a replica's resolved identity: the bind address (local) the
// transport listens on, the global address used as ballot tiebreaker and
// peer-addressing identity, and the rest of the membership.
type Config struct {
	BindAddr paxos.Addr
	Self     paxos.Addr
	Peers    []paxos.Addr
}

// Parse resolves a Config from the CLI's positional arguments. args is
// args[1:] (the program name stripped). configPath is optional; when
// empty, Peers is empty and the replica starts with no peers (a
// single-node deployment, or one that learns peers out of band).
func Parse(args []string) (Config, error) {
	if len(args) < 4 {
		return Config{}, errors.New("config: usage: <localIP> <localPort> <globalIP> <globalPort> [configPath]")
	}
	localPort, err := strconv.Atoi(args[1])
	if err != nil {
		return Config{}, errors.Wrap(err, "config: localPort")
	}
	globalPort, err := strconv.Atoi(args[3])
	if err != nil {
		return Config{}, errors.Wrap(err, "config: globalPort")
	}
	cfg := Config{
		BindAddr: paxos.Addr{IP: args[0], Port: localPort},
		Self:     paxos.Addr{IP: args[2], Port: globalPort},
	}
	if len(args) >= 5 && args[4] != "" {
		peers, err := readMembership(args[4], cfg.Self)
		if err != nil {
			return Config{}, err
		}
		cfg.Peers = peers
	}
	return cfg, nil
}

// readMembership reads one "ip:port" peer per line from path, skipping
// blank lines and the entry matching self (a membership file may list every
// replica including the one reading it).
func readMembership(path string, self paxos.Addr) ([]paxos.Addr, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: open membership file")
	}
	defer f.Close()

	var peers []paxos.Addr
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := parseAddr(line)
		if err != nil {
			return nil, err
		}
		if addr == self {
			continue
		}
		peers = append(peers, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "config: read membership file")
	}
	return peers, nil
}

func parseAddr(s string) (paxos.Addr, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return paxos.Addr{}, errors.Errorf("config: malformed peer entry %q", s)
	}
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return paxos.Addr{}, errors.Wrapf(err, "config: peer port in %q", s)
	}
	return paxos.Addr{IP: s[:idx], Port: port}, nil
}

// Package testutil provides candidate fixtures and browser automation shared
// by unit tests, the soak runner and the e2e suite.
package testutil

// CandidateCase is a candidate line together with the fields it must decode
// to.
type CandidateCase struct {
	Name string
	Line string

	Foundation        string
	ComponentID       uint32
	Transport         string
	Priority          uint64
	ConnectionAddress string
	Port              uint16
	Type              string
	RelAddr           string // empty when absent
	RelPort           uint16

	// Extensions in line order.
	Extensions [][2]string
}

// Candidates is a corpus of well-formed candidate lines in the shapes
// browsers and ICE agents emit.
var Candidates = []CandidateCase{
	{
		Name:              "srflx with extensions",
		Line:              "candidate:842163049 1 udp 1686052607 1.2.3.4 46154 typ srflx raddr 10.0.0.17 rport 46154 generation 0 ufrag EEtu network-id 3 network-cost 10",
		Foundation:        "842163049",
		ComponentID:       1,
		Transport:         "udp",
		Priority:          1686052607,
		ConnectionAddress: "1.2.3.4",
		Port:              46154,
		Type:              "srflx",
		RelAddr:           "10.0.0.17",
		RelPort:           46154,
		Extensions: [][2]string{
			{"generation", "0"},
			{"ufrag", "EEtu"},
			{"network-id", "3"},
			{"network-cost", "10"},
		},
	},
	{
		Name:              "host",
		Line:              "candidate:1 1 udp 2130706431 192.168.1.10 54321 typ host",
		Foundation:        "1",
		ComponentID:       1,
		Transport:         "udp",
		Priority:          2130706431,
		ConnectionAddress: "192.168.1.10",
		Port:              54321,
		Type:              "host",
	},
	{
		Name:              "host ipv6",
		Line:              "candidate:2 1 udp 2122262783 2001:db8::1 54400 typ host generation 0",
		Foundation:        "2",
		ComponentID:       1,
		Transport:         "udp",
		Priority:          2122262783,
		ConnectionAddress: "2001:db8::1",
		Port:              54400,
		Type:              "host",
		Extensions:        [][2]string{{"generation", "0"}},
	},
	{
		Name:              "relay rtcp component",
		Line:              "candidate:4 2 udp 41885439 203.0.113.7 3478 typ relay raddr 198.51.100.2 rport 50000 generation 0",
		Foundation:        "4",
		ComponentID:       2,
		Transport:         "udp",
		Priority:          41885439,
		ConnectionAddress: "203.0.113.7",
		Port:              3478,
		Type:              "relay",
		RelAddr:           "198.51.100.2",
		RelPort:           50000,
		Extensions:        [][2]string{{"generation", "0"}},
	},
	{
		Name:              "prflx",
		Line:              "candidate:5 1 udp 1845501695 198.51.100.9 40000 typ prflx raddr 192.168.1.10 rport 54321",
		Foundation:        "5",
		ComponentID:       1,
		Transport:         "udp",
		Priority:          1845501695,
		ConnectionAddress: "198.51.100.9",
		Port:              40000,
		Type:              "prflx",
		RelAddr:           "192.168.1.10",
		RelPort:           54321,
	},
	{
		Name:              "wide component and priority",
		Line:              "candidate:6 99999 udp 9999999999 198.51.100.20 6000 typ host",
		Foundation:        "6",
		ComponentID:       99999,
		Transport:         "udp",
		Priority:          9999999999,
		ConnectionAddress: "198.51.100.20",
		Port:              6000,
		Type:              "host",
	},
	{
		Name:              "tcp active after other extensions",
		Line:              "candidate:3 1 tcp 1518280447 192.168.1.10 9 typ host generation 0 tcptype active",
		Foundation:        "3",
		ComponentID:       1,
		Transport:         "tcp",
		Priority:          1518280447,
		ConnectionAddress: "192.168.1.10",
		Port:              9,
		Type:              "host",
		Extensions:        [][2]string{{"generation", "0"}, {"tcptype", "active"}},
	},
	{
		Name:              "attribute line form",
		Line:              "a=candidate:7 1 udp 2130706431 10.0.0.5 5000 typ host ufrag abcd\r\n",
		Foundation:        "7",
		ComponentID:       1,
		Transport:         "udp",
		Priority:          2130706431,
		ConnectionAddress: "10.0.0.5",
		Port:              5000,
		Type:              "host",
		Extensions:        [][2]string{{"ufrag", "abcd"}},
	},
}

// MalformedCandidates are inputs that must not parse.
var MalformedCandidates = []string{
	"",
	"candidate:",
	"candidate:842163049 1",
	"candidate:842163049 1 udp",
	"candidate:1 1 udp 1686052607 1.2.3.4 notaport typ host",
	"candidate:1 1 udp 1686052607 1.2.3.4 46154 typ bogus",
	"hello world",
}

// Package checker implements the URL risk detectors.
//
// Architecture overview:
//
//   - Normalize turns raw user input into a Target carrying the lowercase
//     host, its ASCII form and a scheme-qualified URL.
//   - Network-bound detectors implement Probe (Check + Name + Timeout): domain
//     age, TLS, threat intelligence, DNS-over-HTTPS, redirect chain,
//     registration privacy and page content. They absorb timeouts, transport
//     failures and malformed upstream payloads as warn results.
//   - Local detectors implement LocalProbe (Evaluate + Name): lexical URL
//     patterns, homographs, typosquatting and known shorteners. They perform
//     no I/O.
//   - Catalog holds the static brand, TLD, shortener, keyword and privacy
//     indicator lists, parsed once from an embedded YAML document.
//
// Detectors never observe each other. The only shared collaborator is the
// registration record, which RDAPClient.Loader fetches at most once per scan
// for both the domain age and the privacy detectors.
package checker

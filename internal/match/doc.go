// Package match resolves partial identity signals to an existing creator.
//
// A Resolver evaluates an ordered list of Strategy functions (external user
// id, unmasked phone, masked phone fragment, name) and stops at the first
// definitive outcome. A strategy that finds several plausible candidates
// reports Ambiguous, which ends the search: the resolver never guesses.
package match

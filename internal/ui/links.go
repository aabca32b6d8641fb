package ui

import (
	"net/url"
	"strings"
)

const (
	archPackagesURL = "https://archlinux.org/packages/"
	aurPackagesURL  = "https://aur.archlinux.org/packages/"
	nameTemplate    = "{pkgname}"
)

var officialRepos = map[string]bool{
	"core": true, "extra": true, "multilib": true,
	"core-testing": true, "extra-testing": true, "multilib-testing": true,
	"gnome-unstable": true, "kde-unstable": true,
}

// Links builds package page URLs.
type Links struct {
	Arch string
	// RepoURLs maps other repositories to templates containing {pkgname}.
	RepoURLs map[string]string
}

// Pacman returns the page of a repository package, or "" when the
// repository has no known package pages.
func (l Links) Pacman(repo, name string) string {
	if tmpl, ok := l.RepoURLs[repo]; ok {
		return strings.ReplaceAll(tmpl, nameTemplate, url.PathEscape(name))
	}
	if !officialRepos[repo] || l.Arch == "" {
		return ""
	}
	return archPackagesURL + repo + "/" + l.Arch + "/" + url.PathEscape(name) + "/"
}

// AUR returns the AUR page of a package.
func (l Links) AUR(name string) string {
	return aurPackagesURL + url.PathEscape(name)
}

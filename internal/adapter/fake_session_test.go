package adapter

import (
	"context"

	"sjlee133/academyradar/internal/browser"
)

// fakeSession is a canned browser.Session for strategy tests.
type fakeSession struct {
	html       string
	navErr     error
	loginErr   error
	navigated  []string
	logins     []browser.LoginParams
	closeCalls int
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeSession) HTML(ctx context.Context, selector string) (string, error) {
	return f.html, nil
}

func (f *fakeSession) AutoScroll(ctx context.Context) error {
	return nil
}

func (f *fakeSession) Login(ctx context.Context, params browser.LoginParams) error {
	f.logins = append(f.logins, params)
	return f.loginErr
}

func (f *fakeSession) Close() {
	f.closeCalls++
}

func sessionFactory(s *fakeSession) func(context.Context, browser.Config) (browser.Session, error) {
	return func(ctx context.Context, cfg browser.Config) (browser.Session, error) {
		return s, nil
	}
}

package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/siop/internal/config"
	"github.com/tcfw/siop/internal/rpserver"
	istorage "github.com/tcfw/siop/internal/storage"
	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/siop"
	"github.com/tcfw/siop/pkg/storage"
)

var (
	rpCmd = &cobra.Command{
		Use:   "rp",
		Short: "Relying party commands",
	}

	rp_requestCmd = &cobra.Command{
		Use:   "request",
		Short: "Create a signed authentication request URI",
		RunE:  runRPRequest,
	}

	rp_verifyCmd = &cobra.Command{
		Use:   "verify [id_token|response url]",
		Short: "Verify an authentication response",
		Args:  cobra.ExactArgs(1),
		RunE:  runRPVerify,
	}

	rp_serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve requests by reference and receive responses",
		RunE:  runRPServe,
	}
)

func init() {
	rpCmd.PersistentFlags().String("redirect", "", "redirect uri responses are sent to")
	viper.BindPFlag(config.Cfg_rp_redirectURI, rpCmd.PersistentFlags().Lookup("redirect"))

	rp_requestCmd.Flags().String("ref-uri", "", "pass the request by reference at this uri")
	rp_requestCmd.Flags().String("nonce", "", "request nonce. blank generates one")
	rp_requestCmd.Flags().String("state", "", "request state. blank generates one")
	rp_requestCmd.Flags().String("response-mode", string(siop.ResponseModePost), "response mode: post, form_post, fragment or query")

	rp_verifyCmd.Flags().String("nonce", "", "nonce the response must carry")
	rp_verifyCmd.Flags().String("state", "", "state the response must carry")

	rp_serveCmd.Flags().String("listen", "", "listen address")
	viper.BindPFlag(config.Cfg_rp_listen, rp_serveCmd.Flags().Lookup("listen"))
}

func buildRP(by siop.PassBy, refURI string, mode siop.ResponseMode) (*siop.RP, error) {
	sig, err := signingIdentity()
	if err != nil {
		return nil, errors.Wrap(err, "loading signing identity")
	}

	b := siop.NewRPBuilder().
		Redirect(cfg.RP().RedirectURI).
		RequestBy(by, refURI).
		RegistrationBy(siop.PassByValue).
		Response(mode).
		Signature(sig)

	for _, m := range cfg.Resolver().DidMethods {
		b.AddDidMethod(m, cfg.Resolver().Options()...)
	}

	return b.Build()
}

func runRPRequest(cmd *cobra.Command, args []string) error {
	refURI, _ := cmd.Flags().GetString("ref-uri")
	nonce, _ := cmd.Flags().GetString("nonce")
	state, _ := cmd.Flags().GetString("state")
	mode, _ := cmd.Flags().GetString("response-mode")

	by := siop.PassByValue
	if refURI != "" {
		by = siop.PassByReference
	}

	rp, err := buildRP(by, refURI, siop.ResponseMode(mode))
	if err != nil {
		return err
	}

	req, err := rp.CreateAuthenticationRequest(cmd.Context(), siop.RequestParams{Nonce: nonce, State: state})
	if err != nil {
		return errors.Wrap(err, "creating request")
	}

	out := map[string]string{
		"uri":   req.EncodedURI,
		"nonce": req.Payload.Nonce,
		"state": req.Payload.State,
	}
	if by == siop.PassByReference {
		out["request"] = req.JWT
	}

	return printJSON(cmd, out)
}

func runRPVerify(cmd *cobra.Command, args []string) error {
	nonce, _ := cmd.Flags().GetString("nonce")
	state, _ := cmd.Flags().GetString("state")

	idToken := args[0]
	if strings.ContainsAny(idToken, "?#=") {
		t, s, err := siop.ParseResponseParams(idToken)
		if err != nil {
			return err
		}
		idToken = t
		if state == "" {
			state = s
		}
	}

	rp, err := buildRP(siop.PassByValue, "", siop.ResponseModePost)
	if err != nil {
		return err
	}

	res, err := rp.VerifyAuthenticationResponseJWT(cmd.Context(), idToken, siop.ResponseParams{
		Nonce:    nonce,
		State:    state,
		Audience: cfg.RP().RedirectURI,
	})
	if err != nil {
		return errors.Wrap(err, "verifying response")
	}

	return printJSON(cmd, map[string]interface{}{
		"did":     res.Issuer,
		"signer":  res.Signer,
		"payload": res.Payload,
	})
}

func openRequestStore(ctx context.Context) (storage.Store, *storage.NonceFilter, error) {
	rc := cfg.RP()

	switch rc.Store {
	case config.StorePebble:
		s, err := istorage.NewPebbleStore(ctx, expandPath(rc.StorePath))
		if err != nil {
			return nil, nil, err
		}

		f, err := s.NonceFilter(rc.ExpectedRequests)
		if err != nil {
			s.Close()
			return nil, nil, err
		}

		return s, f, nil
	default:
		return storage.NewMemStore(int(rc.ExpectedRequests)), storage.NewNonceFilter(rc.ExpectedRequests), nil
	}
}

func runRPServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc := cfg.RP()
	base := strings.TrimSuffix(rc.BaseURL, "/")

	rp, err := buildRP(siop.PassByReference, base+rpserver.RequestsPath, siop.ResponseModePost)
	if err != nil {
		return err
	}

	store, nonces, err := openRequestStore(ctx)
	if err != nil {
		return errors.Wrap(err, "opening request store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.WithError(err).Error("closing request store")
		}
	}()

	srv, err := rpserver.New(rp, store,
		rpserver.WithBaseURL(base),
		rpserver.WithRequestTTL(rc.RequestTTL),
		rpserver.WithNonceFilter(nonces),
	)
	if err != nil {
		return err
	}

	logging.Entry().
		WithField("store", rc.Store).
		WithField("ttl", rc.RequestTTL.Round(time.Second)).
		Info("starting rp server")

	return srv.ListenAndServe(ctx, rc.Listen)
}

package cli

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tcfw/siop/internal/utils/logging"
	"github.com/tcfw/siop/pkg/siop"
)

var (
	opCmd = &cobra.Command{
		Use:   "op",
		Short: "Self-issued provider commands",
	}

	op_verifyCmd = &cobra.Command{
		Use:   "verify [openid uri]",
		Short: "Verify an authentication request",
		Args:  cobra.ExactArgs(1),
		RunE:  runOPVerify,
	}

	op_respondCmd = &cobra.Command{
		Use:   "respond [openid uri]",
		Short: "Verify an authentication request and answer it",
		Args:  cobra.ExactArgs(1),
		RunE:  runOPRespond,
	}
)

func init() {
	op_respondCmd.Flags().Bool("send", false, "post the response to the redirect uri instead of printing it")
}

func buildOP() (*siop.OP, error) {
	sig, err := signingIdentity()
	if err != nil {
		return nil, errors.Wrap(err, "loading signing identity")
	}

	b := siop.NewOPBuilder().
		RegistrationBy(siop.PassByValue).
		Signature(sig)

	for _, m := range cfg.Resolver().DidMethods {
		b.AddDidMethod(m, cfg.Resolver().Options()...)
	}

	return b.Build()
}

func runOPVerify(cmd *cobra.Command, args []string) error {
	op, err := buildOP()
	if err != nil {
		return err
	}

	req, err := op.VerifyAuthenticationRequestURI(cmd.Context(), args[0])
	if err != nil {
		return errors.Wrap(err, "verifying request")
	}

	return printJSON(cmd, map[string]interface{}{
		"did":     req.Issuer,
		"signer":  req.Signer,
		"payload": req.Payload,
	})
}

func runOPRespond(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	op, err := buildOP()
	if err != nil {
		return err
	}

	req, err := op.VerifyAuthenticationRequestURI(ctx, args[0])
	if err != nil {
		return errors.Wrap(err, "verifying request")
	}

	res, err := op.CreateAuthenticationResponse(ctx, req)
	if err != nil {
		return errors.Wrap(err, "creating response")
	}

	enc, err := siop.EncodeResponse(res)
	if err != nil {
		return err
	}

	send, _ := cmd.Flags().GetBool("send")
	if !send || enc.Body == "" {
		return printJSON(cmd, enc)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, enc.URL, strings.NewReader(enc.Body))
	if err != nil {
		return errors.Wrap(err, "building callback request")
	}
	hreq.Header.Set("Content-Type", enc.ContentType)

	hres, err := http.DefaultClient.Do(hreq)
	if err != nil {
		return errors.Wrap(err, "posting response")
	}
	defer hres.Body.Close()

	logging.Entry().WithField("status", hres.StatusCode).Debug("posted response")

	if hres.StatusCode >= 300 {
		return errors.Errorf("rp rejected response: %s", hres.Status)
	}

	return printJSON(cmd, map[string]interface{}{"status": hres.StatusCode, "url": enc.URL})
}

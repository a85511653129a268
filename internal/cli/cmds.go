package cli

func regCommands() {
	//Identity
	identityCmd.AddCommand(identity_newCmd)
	identityCmd.AddCommand(identity_listCmd)

	//RP
	rpCmd.AddCommand(rp_requestCmd)
	rpCmd.AddCommand(rp_verifyCmd)
	rpCmd.AddCommand(rp_serveCmd)

	//OP
	opCmd.AddCommand(op_verifyCmd)
	opCmd.AddCommand(op_respondCmd)

	//Root
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(rpCmd)
	rootCmd.AddCommand(opCmd)
	rootCmd.AddCommand(resolveCmd)
}

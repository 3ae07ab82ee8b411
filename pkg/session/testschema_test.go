package session

import (
	"strings"

	"github.com/luxfi/fixgate/pkg/dictionary"
)

const testSchemaXML = `
<fix type="FIX.4.2" major="4" minor="2">
  <fields>
    <field name="BeginString" number="8" type="STRING"/>
    <field name="BodyLength" number="9" type="LENGTH"/>
    <field name="MsgType" number="35" type="STRING"/>
    <field name="MsgSeqNum" number="34" type="SEQNUM"/>
    <field name="SenderCompID" number="49" type="STRING"/>
    <field name="TargetCompID" number="56" type="STRING"/>
    <field name="SendingTime" number="52" type="UTCTIMESTAMP"/>
    <field name="PosDupFlag" number="43" type="BOOLEAN"/>
    <field name="OrigSendingTime" number="122" type="UTCTIMESTAMP"/>
    <field name="CheckSum" number="10" type="STRING"/>
    <field name="EncryptMethod" number="98" type="INT"/>
    <field name="HeartBtInt" number="108" type="INT"/>
    <field name="ResetSeqNumFlag" number="141" type="BOOLEAN"/>
    <field name="TestMessageIndicator" number="464" type="BOOLEAN"/>
    <field name="TestReqID" number="112" type="STRING"/>
    <field name="BeginSeqNo" number="7" type="SEQNUM"/>
    <field name="EndSeqNo" number="16" type="SEQNUM"/>
    <field name="NewSeqNo" number="36" type="SEQNUM"/>
    <field name="GapFillFlag" number="123" type="BOOLEAN"/>
    <field name="RefSeqNum" number="45" type="SEQNUM"/>
    <field name="RefTagID" number="371" type="INT"/>
    <field name="RefMsgType" number="372" type="STRING"/>
    <field name="SessionRejectReason" number="373" type="INT"/>
    <field name="Text" number="58" type="STRING"/>
  </fields>
  <header>
    <field name="BeginString" required="Y"/>
    <field name="BodyLength" required="Y"/>
    <field name="MsgType" required="Y"/>
    <field name="MsgSeqNum" required="Y"/>
    <field name="SenderCompID" required="Y"/>
    <field name="TargetCompID" required="Y"/>
    <field name="SendingTime" required="Y"/>
    <field name="PosDupFlag" required="N"/>
    <field name="OrigSendingTime" required="N"/>
    <field name="TestMessageIndicator" required="N"/>
  </header>
  <trailer>
    <field name="CheckSum" required="Y"/>
  </trailer>
  <messages>
    <message name="Logon" msgtype="A">
      <field name="EncryptMethod" required="Y"/>
      <field name="HeartBtInt" required="Y"/>
      <field name="ResetSeqNumFlag" required="N"/>
    </message>
    <message name="Heartbeat" msgtype="0">
      <field name="TestReqID" required="N"/>
    </message>
    <message name="TestRequest" msgtype="1">
      <field name="TestReqID" required="Y"/>
    </message>
    <message name="ResendRequest" msgtype="2">
      <field name="BeginSeqNo" required="Y"/>
      <field name="EndSeqNo" required="Y"/>
    </message>
    <message name="Reject" msgtype="3">
      <field name="RefSeqNum" required="Y"/>
      <field name="RefTagID" required="N"/>
      <field name="RefMsgType" required="N"/>
      <field name="SessionRejectReason" required="N"/>
      <field name="Text" required="N"/>
    </message>
    <message name="SequenceReset" msgtype="4">
      <field name="NewSeqNo" required="Y"/>
      <field name="GapFillFlag" required="N"/>
    </message>
    <message name="Logout" msgtype="5">
      <field name="Text" required="N"/>
    </message>
  </messages>
</fix>
`

func loadTestDictionary() (*dictionary.Dictionary, error) {
	return dictionary.Load(strings.NewReader(testSchemaXML))
}
